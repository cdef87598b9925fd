package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProvider marks catalog lookups that failed for transient reasons.
	ErrProvider = errors.New("catalog provider error")
	// ErrRateLimited marks catalog lookups rejected by provider throttling.
	ErrRateLimited = errors.New("rate limited")
	// ErrFetch marks transient download failures (network, timeout, 5xx).
	ErrFetch = errors.New("fetch error")
	// ErrSourceGone marks downloads whose source no longer exists; retrying
	// cannot succeed.
	ErrSourceGone = errors.New("source gone")
	// ErrPlacement marks library filesystem failures (disk full, permissions).
	// These are environment problems, not source problems.
	ErrPlacement = errors.New("placement error")
	// ErrValidation marks fetched artifacts that failed verification.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or invalid operator configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient is the default marker for unclassified failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
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

// IsRetryable reports whether a pipeline failure should be retried with
// backoff. Terminal markers (source gone, validation, configuration) are not
// retryable; everything else is assumed transient.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrSourceGone),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
}

// IsPlacement reports whether a failure originated in the library filesystem.
// Placement failures revert the candidate to wanted rather than failed since
// the source itself is fine.
func IsPlacement(err error) bool {
	return errors.Is(err, ErrPlacement)
}

// Summary extracts a compact operator-facing message from a wrapped error,
// suitable for persisting as a candidate's last_error.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
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
