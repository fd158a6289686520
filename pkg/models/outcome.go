package models

// ErrorKind classifies terminal job failures.
type ErrorKind string

const (
	ErrKindResolution       ErrorKind = "resolution"
	ErrKindNoEligibleFormat ErrorKind = "no_eligible_format"
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindTooLarge         ErrorKind = "too_large"
	ErrKindArtifactMissing  ErrorKind = "artifact_missing"
	ErrKindDelivery         ErrorKind = "delivery"
	ErrKindUnknown          ErrorKind = "unknown"
)

// JobOutcome is the single terminal result of a DownloadJob. A job either
// succeeded, carrying the delivered artifact's path and on-disk size, or
// failed with a classified error kind and detail.
type JobOutcome struct {
	JobID        string    `json:"job_id"`
	Success      bool      `json:"success"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	ArtifactSize int64     `json:"artifact_size,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	Detail       string    `json:"detail,omitempty"`
}

// SuccessOutcome builds the terminal result for a delivered artifact.
func SuccessOutcome(jobID, path string, size int64) JobOutcome {
	return JobOutcome{JobID: jobID, Success: true, ArtifactPath: path, ArtifactSize: size}
}

// FailureOutcome builds the terminal result for a failed job.
func FailureOutcome(jobID string, kind ErrorKind, detail string) JobOutcome {
	return JobOutcome{JobID: jobID, ErrorKind: kind, Detail: detail}
}
