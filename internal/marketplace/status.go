package marketplace

// transitions lists every allowed status edge. Anything else, including a
// same-state move, is rejected.
var transitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusAccepted:  true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusAccepted: {
		StatusInProgress: true,
		StatusRejected:   true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to OrderStatus) bool {
	return transitions[from][to]
}

// validateTransition checks the edge and the fields that may ride along with it.
// agreed_price and deadline are only accepted when a pending order is accepted.
func validateTransition(o *Order, upd StatusUpdate, now nowFunc) error {
	if !CanTransition(o.Status, upd.Status) {
		return newError(KindInvalidStateTransition, "cannot move order from %s to %s", o.Status, upd.Status)
	}
	if upd.AgreedPrice == nil && upd.Deadline == nil {
		return nil
	}
	if o.Status != StatusPending || upd.Status != StatusAccepted {
		return newError(KindInvalidInput, "agreed_price and deadline can only be set when accepting a pending order")
	}
	if upd.AgreedPrice != nil && *upd.AgreedPrice <= 0 {
		return newError(KindInvalidInput, "agreed_price must be positive")
	}
	if upd.Deadline != nil && upd.Deadline.Before(now()) {
		return newError(KindInvalidInput, "deadline must not be in the past")
	}
	return nil
}

// applyTransition mutates o in place; validateTransition must have passed.
func applyTransition(o *Order, upd StatusUpdate, now nowFunc) {
	ts := now()
	o.Status = upd.Status
	o.UpdatedAt = ts
	if upd.AgreedPrice != nil {
		price := *upd.AgreedPrice
		o.AgreedPrice = &price
	}
	if upd.Deadline != nil {
		d := *upd.Deadline
		o.Deadline = &d
	}
	if upd.Status == StatusCompleted {
		o.CompletedAt = &ts
	}
}
