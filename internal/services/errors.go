package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrVeto          = errors.New("vetoed")
	ErrBuild         = errors.New("build failure")
	ErrPublish       = errors.New("publish failure")
	ErrPropagation   = errors.New("propagation failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind names the marker carried by err, or "error" when none matches.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrVeto):
		return "veto"
	case errors.Is(err, ErrBuild):
		return "build"
	case errors.Is(err, ErrPublish):
		return "publish"
	case errors.Is(err, ErrPropagation):
		return "propagation"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "release failure"
	}
	return strings.Join(parts, ": ")
}
