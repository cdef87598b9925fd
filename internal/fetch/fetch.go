// Package fetch defines the download tool contract.
package fetch

import "context"

// Request describes a single download into a staging directory.
type Request struct {
	SourceLocator string
	TargetDir     string
	QualityFormat string
}

// Result reports a completed download.
type Result struct {
	FilePath  string
	SizeBytes int64
}

// Error is a typed fetch failure. Retryable distinguishes transient network
// or tool failures from permanent ones such as a removed source.
type Error struct {
	Reason    string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed fetch failure.
func NewError(reason string, retryable bool, err error) *Error {
	return &Error{Reason: reason, Retryable: retryable, Err: err}
}

// Fetcher downloads the video behind a source locator into the request's
// target directory and returns the resulting file path.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Result, error)
}
