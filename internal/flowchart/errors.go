package flowchart

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("flowchart: not configured")
	ErrInput         = errors.New("flowchart: invalid input")
	ErrUnknownTier   = errors.New("flowchart: unknown level")

	// Reasons recorded on an Outcome. They never reach callers of Service.Generate.
	ErrExtraction        = errors.New("flowchart: no diagram found in model output")
	ErrValidation        = errors.New("flowchart: diagram failed validation after repair")
	ErrGenerationService = errors.New("flowchart: text generation failed")
)

// ConfigurationError means a collaborator the service needs is missing, for example a
// text-generation engine without credentials.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "flowchart not configured: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Reason == "" && e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInput, e.Err}
	}
	return []error{ErrInput}
}

type UnknownTierError struct {
	Tier string
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown level %q: level must be 1, 2, 3, or a known mode name", e.Tier)
}

func (e *UnknownTierError) Unwrap() error { return ErrUnknownTier }
