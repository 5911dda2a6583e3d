package constants

// Failure classifies why a pair was rejected or failed to normalize.
type Failure string

// Stable values (stored as-is in the catalog).
const (
	FailureNone          Failure = ""
	FailureNotFound      Failure = "NOT_FOUND"
	FailureDecode        Failure = "DECODE"
	FailureTooSmall      Failure = "TOO_SMALL"
	FailureEmptyText     Failure = "EMPTY_TEXT"
	FailureTextTooLong   Failure = "TEXT_TOO_LONG"
	FailureNormalization Failure = "NORMALIZE"
	FailureCancelled     Failure = "CANCELLED"
)

// SampleStatus is the terminal state of one label record in a run.
type SampleStatus string

const (
	SampleInvalid    SampleStatus = "INVALID"     // rejected by validation
	SampleWritten    SampleStatus = "WRITTEN"     // normalized and annotated
	SampleNormFailed SampleStatus = "NORM_FAILED" // valid, split, but not written
)

// RunStatus is the state of a preparation run in the catalog.
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunOK      RunStatus = "OK"
	RunFailed  RunStatus = "FAILED"
)
