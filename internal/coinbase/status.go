package coinbase

// Outcome is the reconciliation decision for one notification.
type Outcome string

const (
	OutcomePlace             Outcome = "place"
	OutcomeCancel            Outcome = "cancel"
	OutcomeMarkFailed        Outcome = "mark_failed"
	OutcomeMarkAuthorization Outcome = "mark_authorization"
	OutcomeNoOp              Outcome = "noop"
)

// Order workflow transitions an outcome can ask for.
const (
	TransitionPlace  = "place"
	TransitionCancel = "cancel"
)

// Local payment transaction states.
const (
	PaymentStateNew           = "new"
	PaymentStateAuthorization = "authorization"
	PaymentStateCompleted     = "completed"
	PaymentStateFailed        = "failed"
)

// Event types.
const (
	EventChargeConfirmed = "charge:confirmed"
	EventChargeFailed    = "charge:failed"
	EventChargeDelayed   = "charge:delayed"
)

// Timeline statuses and contexts.
const (
	StatusNew        = "NEW"
	StatusPending    = "PENDING"
	StatusCompleted  = "COMPLETED"
	StatusResolved   = "RESOLVED"
	StatusUnresolved = "UNRESOLVED"
	StatusCanceled   = "CANCELED"
	StatusExpired    = "EXPIRED"
	ContextOverpaid  = "OVERPAID"
)

// Transition returns the order workflow transition to attempt, or "".
func (o Outcome) Transition() string {
	switch o {
	case OutcomePlace:
		return TransitionPlace
	case OutcomeCancel, OutcomeMarkFailed:
		return TransitionCancel
	}
	return ""
}

// PaymentState returns the payment transaction state to move to, or "" to keep it.
func (o Outcome) PaymentState() string {
	switch o {
	case OutcomePlace:
		return PaymentStateCompleted
	case OutcomeCancel, OutcomeMarkFailed:
		return PaymentStateFailed
	case OutcomeMarkAuthorization:
		return PaymentStateAuthorization
	}
	return ""
}

// Interpret maps a parsed event to an outcome using the variant's policy.
func Interpret(variant Variant, ev *Event) Outcome {
	if variant == VariantTimeline {
		return InterpretTimeline(&ev.Charge)
	}
	return InterpretEventType(ev.Type)
}

// InterpretTimeline decides from the last entry of the charge timeline.
func InterpretTimeline(charge *Charge) Outcome {
	last, ok := charge.LastTimeline()
	if !ok {
		return OutcomeNoOp
	}

	switch last.Status {
	case StatusResolved, StatusCompleted:
		return OutcomePlace
	case StatusUnresolved:
		if last.Context == ContextOverpaid {
			return OutcomePlace
		}
		return OutcomeNoOp
	case StatusCanceled, StatusExpired:
		return OutcomeCancel
	}
	return OutcomeNoOp
}

// InterpretEventType decides from the notification event type.
func InterpretEventType(eventType string) Outcome {
	switch eventType {
	case EventChargeFailed, EventChargeDelayed:
		return OutcomeMarkFailed
	case EventChargeConfirmed:
		return OutcomePlace
	}
	return OutcomeMarkAuthorization
}

var paymentStateRank = map[string]int{
	PaymentStateNew:           0,
	PaymentStateAuthorization: 1,
	PaymentStateCompleted:     2,
	PaymentStateFailed:        2,
}

// CanAdvance reports whether a payment in state from may move to state to.
// States only move forward; completed and failed are terminal.
func CanAdvance(from, to string) bool {
	if from == to {
		return true
	}
	fromRank, ok := paymentStateRank[from]
	if !ok {
		return true
	}
	toRank, ok := paymentStateRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
