package objective

// EvaluationError indicates that a single evaluation failed: the objective
// returned an error, panicked, timed out, or produced a non-finite score.
// It is recoverable; the driver records it and the run continues.
type EvaluationError struct {
	Reason string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return "evaluation failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "evaluation failed: " + e.Reason
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
