// Package entities contains core domain data structures.
package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a proposed edit.
type State string

// Edit lifecycle states. Published and rejected are terminal.
const (
	StatePending   State = "pending"
	StatePublished State = "published"
	StateRejected  State = "rejected"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s State) IsTerminal() bool {
	return s == StatePublished || s == StateRejected
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StatePublished, StateRejected:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s State) CanTransition(next State) bool {
	return s == StatePending && next.IsTerminal()
}

// Action is a reviewer's decision on a pending edit.
type Action string

// Reviewer actions.
const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ErrUnknownAction is returned by ParseAction for anything but approve/reject.
var ErrUnknownAction = errors.New("unknown action")

// ParseAction accepts "approve"/"reject" in any case, matching both the
// form button labels ("Approve", "Reject") and CLI arguments.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// TargetState returns the state an edit moves to when a is applied.
func (a Action) TargetState() State {
	if a == ActionApprove {
		return StatePublished
	}
	return StateRejected
}

// Edit is a proposed replacement of a wiki page's text, submitted anonymously
// and awaiting (or finished with) review.
//
// Only State and UpdatedAt change after creation.
type Edit struct {
	ID             int64     `json:"id"`
	Wiki           string    `json:"wiki"` // Hostname, e.g. "en.wikipedia.org"
	Text           []byte    `json:"text"` // Opaque; not guaranteed to be valid UTF-8
	Summary        string    `json:"summary"`
	BaseRevisionID int64     `json:"base_revision_id"`
	PageID         int64     `json:"page_id"`
	PageName       string    `json:"page_name"`
	State          State     `json:"state"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Draft is a submission as received from the public path. State is accepted
// so callers can send it, but it is never trusted.
type Draft struct {
	Wiki           string `json:"wiki"`
	Text           []byte `json:"text"`
	Summary        string `json:"summary"`
	BaseRevisionID int64  `json:"base_revision_id"`
	PageID         int64  `json:"page_id"`
	PageName       string `json:"page_name"`
	State          State  `json:"state,omitempty"`
}
