package domain

// TransitionPolicy decides whether a status change is allowed.
type TransitionPolicy interface {
	Allowed(from, to TicketStatus) bool
}

// PermissivePolicy accepts any change between valid statuses.
type PermissivePolicy struct{}

// Allowed implements TransitionPolicy.
func (PermissivePolicy) Allowed(from, to TicketStatus) bool {
	return to.Valid()
}

// StrictPolicy enforces the transition table below.
type StrictPolicy struct{}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:          {TicketStatusInReview, TicketStatusInProgress, TicketStatusAwaitingResponse, TicketStatusCompleted},
	TicketStatusInReview:         {TicketStatusPending, TicketStatusInProgress, TicketStatusAwaitingResponse, TicketStatusCompleted},
	TicketStatusInProgress:       {TicketStatusInReview, TicketStatusAwaitingResponse, TicketStatusCompleted},
	TicketStatusAwaitingResponse: {TicketStatusInReview, TicketStatusInProgress, TicketStatusCompleted},
	TicketStatusCompleted:        {TicketStatusInProgress},
}

// Allowed implements TransitionPolicy. Same-status writes are always accepted.
func (StrictPolicy) Allowed(from, to TicketStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
