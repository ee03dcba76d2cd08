package types

// OutcomeState names the terminal state of a run. Confirmed and unconfirmed
// success both collapse to status "success" on the wire; callers that care
// about the confidence level read the state, not the wire status.
type OutcomeState string

const (
	StateConfirmedSuccess   OutcomeState = "confirmed_success"   // a success signal was observed
	StateUnconfirmedSuccess OutcomeState = "unconfirmed_success" // retries exhausted, click may still have landed
	StateFailed             OutcomeState = "failed"              // a precondition failure aborted the run
)

// PublishOutcome is the sole output artifact of a run. Write-once.
type PublishOutcome struct {
	CorrelationID string
	State         OutcomeState
	Message       string
}

// Succeeded reports whether the outcome maps to wire status "success".
func (o PublishOutcome) Succeeded() bool {
	return o.State == StateConfirmedSuccess || o.State == StateUnconfirmedSuccess
}

// ResultData carries the human-readable message of a successful run.
type ResultData struct {
	Message string `json:"message"`
}

// Result is the single JSON object written to standard output per run.
type Result struct {
	CorrelationID string      `json:"correlationId"`
	Status        string      `json:"status"`
	Data          *ResultData `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
}

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Result converts the outcome into its wire form.
func (o PublishOutcome) Result() Result {
	if o.Succeeded() {
		return Result{
			CorrelationID: o.CorrelationID,
			Status:        statusSuccess,
			Data:          &ResultData{Message: o.Message},
		}
	}
	return Result{
		CorrelationID: o.CorrelationID,
		Status:        statusFailed,
		Error:         o.Message,
	}
}

// ErrorResult is the variant emitted when a run fails hard before a
// PublishOutcome could be produced (malformed input, setup panic).
func ErrorResult(correlationID string, err error) Result {
	return Result{
		CorrelationID: correlationID,
		Status:        statusFailed,
		Error:         err.Error(),
	}
}
