package domain

import "errors"

var (
	// ErrInvalidRequest rejects a request before any network call is made.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAuth indicates a missing or rejected provider credential.
	ErrAuth = errors.New("provider credential missing or rejected")
	// ErrRateLimited is surfaced after the single bounded retry on throttling.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrProvider covers any other non-2xx provider response.
	ErrProvider = errors.New("provider error")
	// ErrJobFailed carries the provider-supplied failure reason.
	ErrJobFailed = errors.New("job failed")
	// ErrJobTimeout fires when the polling attempt cap is exceeded.
	ErrJobTimeout = errors.New("job timed out")
	// ErrNoProvider means the selection policy found no usable provider.
	ErrNoProvider = errors.New("no provider configured")
	// ErrInvalidSource rejects materialization of a non-fetchable URL.
	ErrInvalidSource = errors.New("invalid source url")
	// ErrDownloadFailed covers transport errors and non-2xx downloads.
	ErrDownloadFailed = errors.New("download failed")
	// ErrEmptyOutput means normalization found no usable image URL.
	ErrEmptyOutput = errors.New("empty output")
)
