package checkout

type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is how a checkout ended: Succeeded carries the return URL query
// parameters in Data, Failed carries Message, Cancelled carries nothing.
type Outcome struct {
	Kind    OutcomeKind       `json:"kind"`
	Data    map[string]string `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
}

func Success(data map[string]string) Outcome {
	if data == nil {
		data = map[string]string{}
	}
	return Outcome{Kind: OutcomeSucceeded, Data: data}
}

func Cancellation() Outcome { return Outcome{Kind: OutcomeCancelled} }

func Failure(message string) Outcome { return Outcome{Kind: OutcomeFailed, Message: message} }

func (o Outcome) state() State {
	switch o.Kind {
	case OutcomeSucceeded:
		return Succeeded
	case OutcomeCancelled:
		return Cancelled
	default:
		return Failed
	}
}

// Callbacks adapts an outcome to per-kind handlers. Nil handlers are skipped.
type Callbacks struct {
	OnSuccess func(data map[string]string)
	OnCancel  func()
	OnError   func(message string)
}

func (c Callbacks) Dispatch(o Outcome) {
	switch o.Kind {
	case OutcomeSucceeded:
		if c.OnSuccess != nil {
			c.OnSuccess(o.Data)
		}
	case OutcomeCancelled:
		if c.OnCancel != nil {
			c.OnCancel()
		}
	case OutcomeFailed:
		if c.OnError != nil {
			c.OnError(o.Message)
		}
	}
}
