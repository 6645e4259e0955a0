package synth

// Kind classifies a synthesis failure.
type Kind string

const (
	KindModelsMissing         Kind = "models_missing"
	KindInferenceFailed       Kind = "inference_failed"
	KindNoOutputProduced      Kind = "no_output_produced"
	KindFallbackFailed        Kind = "fallback_failed"
	KindCapabilityUnavailable Kind = "capability_unavailable"
)

// Error carries the failure kind plus the message surfaced to the host
// scheduler. Subprocess diagnostics are folded into Detail; they never
// escape as panics or raw exec errors.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}
