package driver

// Outcome classifies how a run ended.
type Outcome int

const (
	// OutcomeFailed means a step failed before a result was written.
	OutcomeFailed Outcome = iota
	// OutcomeAlreadyConforming means the input met the target and nothing was written.
	OutcomeAlreadyConforming
	// OutcomeConverted means the output was written with informational events only.
	OutcomeConverted
	// OutcomeConvertedWithWarnings means the output was written and needs review.
	OutcomeConvertedWithWarnings
	// OutcomeCriticalEvents means the output was written but does not conform.
	OutcomeCriticalEvents
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeAlreadyConforming:
		return "already-conforming"
	case OutcomeConverted:
		return "converted"
	case OutcomeConvertedWithWarnings:
		return "converted-with-warnings"
	case OutcomeCriticalEvents:
		return "critical-events"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeAlreadyConforming, OutcomeConverted, OutcomeConvertedWithWarnings:
		return 0
	default:
		return 1
	}
}
