package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yungbote/flowchart-backend/internal/platform/envutil"
)

const redacted = "[REDACTED]"

// Keys containing one of these are replaced outright.
var secretKeyParts = []string{
	"api_key", "apikey", "authorization", "token", "secret", "password", "credential", "private_key", "cookie",
}

// redactor rewrites logged values. Secrets are dropped; descriptions, prompts and markup
// are replaced by a short salted hash so repeated requests can still be correlated.
// A nil redactor passes everything through.
type redactor struct {
	salt string
}

// redactorFromEnv honors LOG_REDACTION_ENABLED (default on) and LOG_HASH_SALT.
func redactorFromEnv() *redactor {
	if !envutil.Bool("LOG_REDACTION_ENABLED", true) {
		return nil
	}
	return &redactor{salt: envutil.String("", "LOG_HASH_SALT")}
}

func (r *redactor) kvs(kv []interface{}) []interface{} {
	if r == nil || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		out = append(out, key, r.value(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch {
	case isSecretKey(key):
		return redacted
	case isContentKey(key):
		return r.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = r.value(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = r.value("", inner)
		}
		return out
	case string:
		if looksLikeBearer(v) {
			return redacted
		}
	}
	return val
}

func isSecretKey(key string) bool {
	if key == "" {
		return false
	}
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func isContentKey(key string) bool {
	return key == "description" || strings.HasSuffix(key, "_description") ||
		strings.Contains(key, "prompt") || key == "mermaid_code" || key == "markup"
}

func (r *redactor) hash(val interface{}) string {
	var raw string
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		raw = fmt.Sprint(v)
	}
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

// looksLikeBearer catches JWTs and "Bearer ..." values logged under innocuous keys.
func looksLikeBearer(s string) bool {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return true
	}
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}
