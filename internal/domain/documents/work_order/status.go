package work_order

// Status is the work order lifecycle state.
type Status string

const (
	StatusReceived   Status = "recibido"
	StatusInProgress Status = "en_proceso"
	StatusWaiting    Status = "en_espera"
	StatusReady      Status = "listo"
	StatusDelivered  Status = "entregado"
	StatusCancelled  Status = "cancelado"
)

// InitialStatus is the only state a work order is created in; no transition
// leads back to it.
const InitialStatus = StatusReceived

var transitions = map[Status][]Status{
	StatusReceived:   {StatusInProgress, StatusWaiting},
	StatusInProgress: {StatusWaiting, StatusReady},
	StatusWaiting:    {StatusInProgress, StatusReady},
	StatusReady:      {StatusDelivered},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

func AllStatuses() []Status {
	return []Status{
		StatusReceived,
		StatusInProgress,
		StatusWaiting,
		StatusReady,
		StatusDelivered,
		StatusCancelled,
	}
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal is true for entregado and cancelado. Terminal orders accept no
// item, checklist or status writes.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Billable reports whether a sale may be generated in this state.
func (s Status) Billable() bool {
	return s == StatusReady || s == StatusDelivered
}

// NextStates returns the regular transitions out of s, without the cancel path.
func NextStates(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// AllowedTransitions is NextStates plus cancelado for non-terminal states.
func AllowedTransitions(s Status) []Status {
	out := NextStates(s)
	if s.Valid() && !s.IsTerminal() {
		out = append(out, StatusCancelled)
	}
	return out
}

func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
