package domain

// Provider enumerates the supported remote image-generation services.
type Provider string

const (
	ProviderReplicate Provider = "replicate"
	ProviderGrok      Provider = "grok"
)

// Normalize sanitizes free-form user input into a supported provider name.
// Unknown values resolve to the empty provider, which lets the orchestrator
// pick by credential availability.
func (p Provider) Normalize() Provider {
	switch p {
	case ProviderReplicate, ProviderGrok:
		return p
	default:
		return ""
	}
}

// JobStatus enumerates the lifecycle states of a remote job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// RemoteJob is one asynchronous unit of remote work: a single model
// invocation with a lifecycle from submission to terminal status. RawOutput
// is populated only on success, ErrorMessage only on failure.
type RemoteJob struct {
	ID            string
	ProviderModel string
	Status        JobStatus
	RawOutput     any
	ErrorMessage  string
}
