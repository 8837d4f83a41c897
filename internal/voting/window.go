package voting

import (
	"errors"
	"time"
)

type State string

const (
	StateUnscheduled State = "unscheduled"
	StateUpcoming    State = "upcoming"
	StateOpen        State = "open"
	StateClosed      State = "closed"
)

var ErrInvalidWindow = errors.New("voting window must end after it starts")

// Window is the admin-configured span during which costume votes may be
// cast. A nil bound leaves that side open; no bounds at all means voting
// has not been scheduled and is not permitted.
type Window struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

func (w Window) Validate() error {
	if w.StartsAt != nil && w.EndsAt != nil && !w.EndsAt.After(*w.StartsAt) {
		return ErrInvalidWindow
	}
	return nil
}

// State reports the window state at now. The start is inclusive and the
// end exclusive.
func (w Window) State(now time.Time) State {
	if w.StartsAt == nil && w.EndsAt == nil {
		return StateUnscheduled
	}
	if w.StartsAt != nil && now.Before(*w.StartsAt) {
		return StateUpcoming
	}
	if w.EndsAt != nil && !now.Before(*w.EndsAt) {
		return StateClosed
	}
	return StateOpen
}

func (w Window) IsOpen(now time.Time) bool {
	return w.State(now) == StateOpen
}
