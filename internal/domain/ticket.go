package domain

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateDraft        TicketState = "DRAFT"
	TicketStateRequested    TicketState = "REQUESTED"
	TicketStateAssigned     TicketState = "ASSIGNED"
	TicketStateInEvaluation TicketState = "IN_EVALUATION"
	TicketStateApproved     TicketState = "APPROVED"
	TicketStateRejected     TicketState = "REJECTED"
	TicketStateReturned     TicketState = "RETURNED"
)

// wireStates maps ticket states to the values stored on the work-item record.
// The tracking project predates this service and carries Spanish state names.
var wireStates = map[TicketState]string{
	TicketStateDraft:        "Borrador",
	TicketStateRequested:    "Solicitado",
	TicketStateAssigned:     "Asignado",
	TicketStateInEvaluation: "En evaluacion",
	TicketStateApproved:     "Aprobado",
	TicketStateRejected:     "Rechazado",
	TicketStateReturned:     "Devuelto",
}

// WireValue returns the state string written to the work-item store.
func (s TicketState) WireValue() string {
	return wireStates[s]
}

// IsValid reports whether s is a member of the closed state enumeration.
func (s TicketState) IsValid() bool {
	_, ok := wireStates[s]
	return ok
}

// ParseTicketState resolves a raw value into a TicketState. Unrecognized
// values are rejected here, at the normalization boundary, rather than deep
// in workflow logic. Both the wire spelling and the enum name are accepted
// since API callers send the latter.
func ParseTicketState(raw string) (TicketState, bool) {
	for state, wire := range wireStates {
		if wire == raw {
			return state, true
		}
	}
	candidate := TicketState(raw)
	if candidate.IsValid() {
		return candidate, true
	}
	return "", false
}

// AllowedTransitions is the authoritative transition table. Nothing moves a
// ticket into Returned anymore; the state survives only on legacy records,
// which may still exit to Draft or Requested.
var AllowedTransitions = map[TicketState][]TicketState{
	TicketStateDraft:        {TicketStateRequested},
	TicketStateRequested:    {TicketStateAssigned},
	TicketStateAssigned:     {TicketStateInEvaluation},
	TicketStateInEvaluation: {TicketStateDraft, TicketStateApproved, TicketStateRejected},
	TicketStateReturned:     {TicketStateDraft, TicketStateRequested},
}

// CanTransition reports whether a ticket in state current may move to next.
func CanTransition(current, next TicketState) bool {
	for _, candidate := range AllowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Comment is a free-text note on a ticket. The sender is folded into the text
// at creation time; the store keeps no separate author field for us.
type Comment struct {
	ID   int
	Text string
}

// Attachment is a file relation on a ticket. Order is meaningful only for
// positional removal against the store.
type Attachment struct {
	URL     string
	Comment string
	Name    string
}

// Ticket is the normalized projection of a work-item record.
type Ticket struct {
	ID                   int
	Title                string
	Description          string
	State                TicketState
	IterationCount       int
	AssignedTo           string
	LastInDraft          string
	LastRequested        string
	LastAssigned         string
	LastInEvaluation     string
	LastReturned         string
	EvaluationFinishedAt string
	Comments             []Comment
	Attachments          []Attachment
}
