package main

import (
	"math"
	"time"
)

// DragState names the stages of one pointer session over the crop frame.
type DragState int

const (
	DragIdle DragState = iota
	DragPressed
	DragDragging
)

func (s DragState) String() string {
	switch s {
	case DragPressed:
		return "pressed"
	case DragDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// PointerMachine turns raw pointer events into pan updates. A press
// records an anchor; moves only start panning once the pointer travels
// past a small threshold, which separates an intentional drag from a
// click. Releasing a drag arms a short click-suppression window: the
// browser fires a click on the same element after a drag release, and on
// an empty slot that click would reopen the file picker.
//
// One machine serves one editing session; the single releasedAt field is
// the sole source of truth for "is a click currently suppressed".
type PointerMachine struct {
	threshold float64
	suppress  time.Duration
	now       func() time.Time

	state      DragState
	downPos    Vec2
	anchor     Vec2
	releasedAt time.Time
}

// NewPointerMachine creates an idle machine. threshold is the movement in
// pixels needed to promote a press into a drag; suppress is how long a
// click stays suppressed after a drag release.
func NewPointerMachine(threshold float64, suppress time.Duration) *PointerMachine {
	return &PointerMachine{
		threshold: threshold,
		suppress:  suppress,
		now:       time.Now,
	}
}

// State returns the current drag state.
func (m *PointerMachine) State() DragState {
	return m.state
}

// Press starts a pointer session at pos with the slot's current pan.
// Callers gate this on the slot having an image and interactions being
// enabled; the machine itself accepts any press.
func (m *PointerMachine) Press(pos, pan Vec2) {
	m.state = DragPressed
	m.downPos = pos
	m.anchor = Vec2{X: pos.X - pan.X, Y: pos.Y - pan.Y}
}

// Move feeds a pointer position and returns the next raw pan along with
// whether the machine is dragging. Below the threshold the press stays a
// press and the pan is untouched, so a shaky tap does not nudge the
// image. The returned pan is unclamped; the crop store clamps it.
func (m *PointerMachine) Move(pos Vec2) (Vec2, bool) {
	switch m.state {
	case DragPressed:
		if math.Hypot(pos.X-m.downPos.X, pos.Y-m.downPos.Y) <= m.threshold {
			return Vec2{}, false
		}
		m.state = DragDragging
		fallthrough
	case DragDragging:
		return Vec2{X: pos.X - m.anchor.X, Y: pos.Y - m.anchor.Y}, true
	default:
		return Vec2{}, false
	}
}

// Release ends the session on pointer-up or pointer-leave. A session
// that reached dragging arms the click-suppression window.
func (m *PointerMachine) Release() {
	if m.state == DragDragging {
		m.releasedAt = m.now()
	}
	m.state = DragIdle
}

// Cancel ends the session without arming suppression; a cancelled
// pointer never produces a follow-up click.
func (m *PointerMachine) Cancel() {
	m.state = DragIdle
}

// ClickAllowed reports whether a click arriving now should be honored,
// or swallowed as the tail end of a drag gesture.
func (m *PointerMachine) ClickAllowed() bool {
	if m.releasedAt.IsZero() {
		return true
	}
	return m.now().Sub(m.releasedAt) >= m.suppress
}
