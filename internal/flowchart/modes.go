package flowchart

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed modes.yaml
var modesYAML []byte

// Mode is a named prompt configuration. Level is the numeric alias ("1", "2", "3").
type Mode struct {
	Name         string `yaml:"name" json:"name"`
	Level        string `yaml:"level" json:"level"`
	Summary      string `yaml:"summary" json:"summary"`
	Instructions string `yaml:"instructions" json:"-"`
}

type yamlModes struct {
	Modes []Mode `yaml:"modes"`
}

type modeRegistry struct {
	ordered []Mode
	byKey   map[string]Mode
}

var registry = mustLoadModes(modesYAML)

func mustLoadModes(data []byte) *modeRegistry {
	r, err := loadModes(data)
	if err != nil {
		panic(fmt.Sprintf("flowchart: embedded modes.yaml: %v", err))
	}
	return r
}

func loadModes(data []byte) (*modeRegistry, error) {
	var file yamlModes
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse modes: %w", err)
	}
	if len(file.Modes) == 0 {
		return nil, fmt.Errorf("no modes defined")
	}
	r := &modeRegistry{byKey: map[string]Mode{}}
	for _, m := range file.Modes {
		m.Name = strings.ToLower(strings.TrimSpace(m.Name))
		m.Level = strings.TrimSpace(m.Level)
		m.Instructions = strings.TrimSpace(m.Instructions)
		if m.Name == "" || m.Level == "" || m.Instructions == "" {
			return nil, fmt.Errorf("mode %q: name, level and instructions are required", m.Name)
		}
		for _, key := range []string{m.Name, m.Level} {
			if _, dup := r.byKey[key]; dup {
				return nil, fmt.Errorf("mode key %q defined twice", key)
			}
			r.byKey[key] = m
		}
		r.ordered = append(r.ordered, m)
	}
	sort.SliceStable(r.ordered, func(i, j int) bool { return r.ordered[i].Level < r.ordered[j].Level })
	return r, nil
}

// ResolveMode maps a level ("1".."3") or mode name, case-insensitively, to its Mode.
func ResolveMode(tier string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(tier))
	if m, ok := registry.byKey[key]; ok {
		return m, nil
	}
	return Mode{}, &UnknownTierError{Tier: tier}
}

// Modes lists every mode in level order.
func Modes() []Mode {
	out := make([]Mode, len(registry.ordered))
	copy(out, registry.ordered)
	return out
}
