package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	// ErrAuthorization marks failures that need operator action on credentials
	// or library permissions before any run can succeed.
	ErrAuthorization = errors.New("authorization error")
	// ErrInsufficientScope marks remote rejections caused by a token that lacks
	// the required scopes. It is recoverable once by re-authenticating.
	ErrInsufficientScope = errors.New("insufficient authentication scopes")
	// ErrLibrary marks failures reading the local media library.
	ErrLibrary = errors.New("library error")
	// ErrLedger marks failures reading or writing the sync ledger.
	ErrLedger = errors.New("ledger error")
)

// Kind groups failures by how far their effect reaches.
type Kind int

const (
	// KindTransient failures are retried in place.
	KindTransient Kind = iota
	// KindItem failures abandon one item and let the run continue.
	KindItem
	// KindFatal failures halt the whole run.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindItem:
		return "item"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the scope of its effect on a run.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindItem
	case errors.Is(err, ErrAuthorization),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrLedger),
		errors.Is(err, ErrLibrary):
		return KindFatal
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout):
		return KindTransient
	default:
		return KindItem
	}
}

// IsFatal reports whether err must halt the run.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == KindFatal
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
