package domain

import (
	"encoding/json"
	"fmt"
)

// ItemStatus is the lifecycle state shared by lost and found postings.
type ItemStatus int

const (
	StatusPending ItemStatus = iota
	StatusClaimed
	StatusCompleted
	StatusClosed
	StatusExpired
)

// AllItemStatuses lists every status in code order.
var AllItemStatuses = []ItemStatus{StatusPending, StatusClaimed, StatusCompleted, StatusClosed, StatusExpired}

var itemStatusLabels = map[ItemStatus]string{
	StatusPending:   "Pending",
	StatusClaimed:   "Claimed",
	StatusCompleted: "Completed",
	StatusClosed:    "Closed",
	StatusExpired:   "Expired",
}

var itemStatusEdges = map[ItemStatus][]ItemStatus{
	StatusPending:   {StatusClaimed, StatusClosed, StatusExpired},
	StatusClaimed:   {StatusCompleted, StatusPending, StatusClosed},
	StatusCompleted: {StatusClosed},
	StatusClosed:    {StatusPending},
	StatusExpired:   {StatusPending, StatusClosed},
}

// ParseItemStatus converts a raw code into an ItemStatus.
func ParseItemStatus(code int) (ItemStatus, error) {
	s := ItemStatus(code)
	if _, ok := itemStatusLabels[s]; !ok {
		return 0, fmt.Errorf("unknown item status %d: %w", code, ErrValidation)
	}
	return s, nil
}

func (s ItemStatus) Valid() bool {
	_, ok := itemStatusLabels[s]
	return ok
}

func (s ItemStatus) Label() string {
	if l, ok := itemStatusLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

func (s ItemStatus) String() string { return s.Label() }

// CanBeEdited reports whether posting content may still change in this state.
func (s ItemStatus) CanBeEdited() bool {
	return s == StatusPending || s == StatusExpired
}

// IsFinal reports whether the posting has reached a resolved state.
func (s ItemStatus) IsFinal() bool {
	return s == StatusCompleted || s == StatusClosed
}

func (s *ItemStatus) UnmarshalJSON(b []byte) error {
	var code int
	if err := json.Unmarshal(b, &code); err != nil {
		return fmt.Errorf("item status must be an integer: %w", ErrValidation)
	}
	parsed, err := ParseItemStatus(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CanTransition reports whether from -> to is an edge of the status graph.
func CanTransition(from, to ItemStatus) bool {
	for _, next := range itemStatusEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextPossible returns the statuses reachable from the given one in a single step.
// The returned slice is a copy.
func NextPossible(from ItemStatus) []ItemStatus {
	edges := itemStatusEdges[from]
	out := make([]ItemStatus, len(edges))
	copy(out, edges)
	return out
}

// InvalidTransitionError describes a rejected status change.
type InvalidTransitionError struct {
	From   ItemStatus
	To     ItemStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s: %s", e.From, e.To, e.Reason)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidState }

// ValidateTransition returns nil for a legal edge and an *InvalidTransitionError otherwise.
func ValidateTransition(from, to ItemStatus) error {
	switch {
	case !from.Valid() || !to.Valid():
		return &InvalidTransitionError{From: from, To: to, Reason: "unknown status"}
	case from == to:
		return &InvalidTransitionError{From: from, To: to, Reason: "item is already in this status"}
	case !CanTransition(from, to):
		return &InvalidTransitionError{From: from, To: to, Reason: fmt.Sprintf("allowed next statuses are %v", NextPossible(from))}
	}
	return nil
}

// TransitionAdvice is the hint shown to the owner after a successful change.
func TransitionAdvice(from, to ItemStatus) string {
	switch to {
	case StatusClaimed:
		return "item has been claimed, arrange the hand-over with the claimant"
	case StatusCompleted:
		return "hand-over completed"
	case StatusClosed:
		return "item closed"
	case StatusExpired:
		return "item expired, reopen it to accept claims again"
	case StatusPending:
		if from == StatusClaimed {
			return "claim withdrawn, item is open for claims again"
		}
		return "item reopened for claims"
	}
	return ""
}

// ItemStatusInfo is the public description of one status.
type ItemStatusInfo struct {
	Code        int    `json:"code"`
	Label       string `json:"label"`
	CanBeEdited bool   `json:"can_be_edited"`
	IsFinal     bool   `json:"is_final"`
}

func (s ItemStatus) Info() ItemStatusInfo {
	return ItemStatusInfo{Code: int(s), Label: s.Label(), CanBeEdited: s.CanBeEdited(), IsFinal: s.IsFinal()}
}
