package session

import (
	"github.com/google/uuid"

	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/models"
)

// Queue is the current-speaker slot plus the ordered list of upcoming speakers.
// No two entries across Current and Upcoming share a Code.
type Queue struct {
	Current  *models.Speaker  `json:"current_speaker"`
	Upcoming []models.Speaker `json:"speaker_queue"`
}

// DragSource identifies where a dragged speaker came from
type DragSource string

const (
	SourceCurrent DragSource = "current"
	SourceQueue   DragSource = "queue"
)

// DragPayload is the transfer object attached to a drag gesture
type DragPayload struct {
	Source DragSource `json:"source"`
	Code   string     `json:"code"`
	Index  int        `json:"index"`
}

// DropTarget is where the payload was released
type DropTarget struct {
	Kind  DragSource `json:"kind"`
	Index int        `json:"index"`
}

// renderKey gives a speaker a fresh ephemeral id on every insert
var renderKey = func() string { return uuid.NewString() }

func (q Queue) clone() Queue {
	out := Queue{Upcoming: make([]models.Speaker, len(q.Upcoming))}
	copy(out.Upcoming, q.Upcoming)
	if q.Current != nil {
		c := *q.Current
		out.Current = &c
	}
	return out
}

func seat(s models.Speaker) *models.Speaker {
	s.ID = renderKey()
	return &s
}

func queued(s models.Speaker) models.Speaker {
	s.ID = renderKey()
	return s
}

// IndexOf returns the queue position of code, or -1
func (q Queue) IndexOf(code string) int {
	for i, s := range q.Upcoming {
		if models.SameCode(s.Code, code) {
			return i
		}
	}
	return -1
}

// IsCurrent reports whether code holds the floor
func (q Queue) IsCurrent(code string) bool {
	return q.Current != nil && models.SameCode(q.Current.Code, code)
}

// Contains reports whether code is current or queued
func (q Queue) Contains(code string) bool {
	return q.IsCurrent(code) || q.IndexOf(code) >= 0
}

// Len is the number of speakers in the queue plus the current speaker
func (q Queue) Len() int {
	n := len(q.Upcoming)
	if q.Current != nil {
		n++
	}
	return n
}

// Add seats sp when the floor is empty, otherwise appends it.
// proposerCode is the proposing delegate of the active motion (may be empty):
// that delegate is seated on an empty floor even when already queued.
func (q Queue) Add(sp models.Speaker, proposerCode string) (Queue, error) {
	if sp.Code == "" {
		return q, errors.Validation("speaker code is required")
	}
	if q.IsCurrent(sp.Code) {
		return q, errors.Conflictf("%s is already speaking", displayName(sp))
	}

	next := q.clone()
	if idx := q.IndexOf(sp.Code); idx >= 0 {
		if next.Current == nil && proposerCode != "" && models.SameCode(proposerCode, sp.Code) {
			existing := next.Upcoming[idx]
			next.Upcoming = append(next.Upcoming[:idx], next.Upcoming[idx+1:]...)
			next.Current = seat(existing)
			return next, nil
		}
		return q, errors.Conflictf("%s is already in the speakers list", displayName(sp))
	}

	if next.Current == nil {
		next.Current = seat(sp)
		return next, nil
	}
	next.Upcoming = append(next.Upcoming, queued(sp))
	return next, nil
}

// Remove takes code off the floor or out of the queue. Removing the current
// speaker promotes the queue head; the timer is not touched.
func (q Queue) Remove(code string) (Queue, models.Speaker, error) {
	next := q.clone()
	if q.IsCurrent(code) {
		removed := *next.Current
		next.Current = nil
		if len(next.Upcoming) > 0 {
			next.Current = seat(next.Upcoming[0])
			next.Upcoming = next.Upcoming[1:]
		}
		return next, removed, nil
	}
	idx := q.IndexOf(code)
	if idx < 0 {
		return q, models.Speaker{}, errors.NotFoundf("speaker %s is not in the speakers list", code)
	}
	removed := next.Upcoming[idx]
	next.Upcoming = append(next.Upcoming[:idx], next.Upcoming[idx+1:]...)
	return next, removed, nil
}

// Next pops the queue head onto the floor and loads the timer with base plus
// the new speaker's yielded time. The timer is always left paused.
func (q Queue) Next(t Timer, base int) (Queue, Timer) {
	next := q.clone()
	if len(next.Upcoming) == 0 {
		next.Current = nil
		return next, t.Load(base)
	}
	head := next.Upcoming[0]
	next.Upcoming = next.Upcoming[1:]
	next.Current = seat(head)
	return next, t.Load(base + head.YieldedTime)
}

// Yield hands the current speaker's remaining time to a queued delegate.
// The remaining seconds accumulate on the target, who takes the floor at once
// with base plus everything yielded to them. The yielding speaker's turn ends.
func (q Queue) Yield(toCode string, t Timer, base int) (Queue, Timer, int, error) {
	if q.Current == nil {
		return q, t, 0, errors.Validation("no one has the floor to yield")
	}
	if t.CurrentTime <= 0 {
		return q, t, 0, errors.Validation("no time remaining to yield")
	}
	if models.SameCode(q.Current.Code, toCode) {
		return q, t, 0, errors.Validation("a speaker cannot yield to themselves")
	}
	idx := q.IndexOf(toCode)
	if idx < 0 {
		return q, t, 0, errors.Validationf("%s is not in the speakers list", toCode)
	}

	remaining := t.CurrentTime
	next := q.clone()
	target := next.Upcoming[idx]
	target.YieldedTime += remaining
	next.Upcoming = append(next.Upcoming[:idx], next.Upcoming[idx+1:]...)
	next.Current = seat(target)
	return next, t.Load(base + target.YieldedTime), remaining, nil
}

// Reorder replaces the queue order. codes must be a permutation of the queue.
func (q Queue) Reorder(codes []string) (Queue, error) {
	if len(codes) != len(q.Upcoming) {
		return q, errors.Validationf("expected %d speakers in new order, got %d", len(q.Upcoming), len(codes))
	}
	seen := make(map[string]bool, len(codes))
	next := q.clone()
	next.Upcoming = next.Upcoming[:0]
	for _, code := range codes {
		if seen[code] {
			return q, errors.Validationf("speaker %s listed twice", code)
		}
		seen[code] = true
		idx := q.IndexOf(code)
		if idx < 0 {
			return q, errors.Validationf("speaker %s is not in the speakers list", code)
		}
		next.Upcoming = append(next.Upcoming, q.Upcoming[idx])
	}
	return next, nil
}

// SwapCurrentWithQueued trades the current speaker with the one at index
func (q Queue) SwapCurrentWithQueued(index int) (Queue, error) {
	if q.Current == nil {
		return q, errors.Validation("no current speaker to swap")
	}
	if index < 0 || index >= len(q.Upcoming) {
		return q, errors.InvalidInputf("queue position %d is out of range", index)
	}
	next := q.clone()
	incoming := next.Upcoming[index]
	next.Upcoming[index] = queued(*next.Current)
	next.Current = seat(incoming)
	return next, nil
}

// MoveCurrentIntoQueue drops the current speaker into the queue at index.
// An occupied slot turns this into a swap; past the end it appends.
func (q Queue) MoveCurrentIntoQueue(index int) (Queue, error) {
	if q.Current == nil {
		return q, errors.Validation("no current speaker to move")
	}
	if index < 0 {
		return q, errors.InvalidInputf("queue position %d is out of range", index)
	}
	if index < len(q.Upcoming) {
		return q.SwapCurrentWithQueued(index)
	}
	next := q.clone()
	next.Upcoming = append(next.Upcoming, queued(*next.Current))
	next.Current = nil
	return next, nil
}

// moveWithinQueue moves the entry at from to position to
func (q Queue) moveWithinQueue(from, to int) (Queue, error) {
	if from < 0 || from >= len(q.Upcoming) {
		return q, errors.InvalidInputf("queue position %d is out of range", from)
	}
	if to < 0 {
		return q, errors.InvalidInputf("queue position %d is out of range", to)
	}
	if to >= len(q.Upcoming) {
		to = len(q.Upcoming) - 1
	}
	next := q.clone()
	moving := next.Upcoming[from]
	rest := append(next.Upcoming[:from:from], next.Upcoming[from+1:]...)
	out := make([]models.Speaker, 0, len(q.Upcoming))
	out = append(out, rest[:to]...)
	out = append(out, moving)
	out = append(out, rest[to:]...)
	next.Upcoming = out
	return next, nil
}

// Drop applies a drag-and-drop gesture described entirely by its payload
func (q Queue) Drop(p DragPayload, target DropTarget) (Queue, error) {
	switch p.Source {
	case SourceCurrent:
		if q.Current == nil || (p.Code != "" && !models.SameCode(q.Current.Code, p.Code)) {
			return q, errors.InvalidInput("dragged speaker no longer has the floor")
		}
		if target.Kind == SourceCurrent {
			return q, nil
		}
		return q.MoveCurrentIntoQueue(target.Index)

	case SourceQueue:
		if p.Index < 0 || p.Index >= len(q.Upcoming) {
			return q, errors.InvalidInputf("queue position %d is out of range", p.Index)
		}
		if p.Code != "" && !models.SameCode(q.Upcoming[p.Index].Code, p.Code) {
			return q, errors.InvalidInput("dragged speaker moved before the drop")
		}
		if target.Kind == SourceCurrent {
			if q.Current == nil {
				next := q.clone()
				promoted := next.Upcoming[p.Index]
				next.Upcoming = append(next.Upcoming[:p.Index], next.Upcoming[p.Index+1:]...)
				next.Current = seat(promoted)
				return next, nil
			}
			return q.SwapCurrentWithQueued(p.Index)
		}
		return q.moveWithinQueue(p.Index, target.Index)
	}
	return q, errors.InvalidInputf("unknown drag source %q", p.Source)
}

func displayName(s models.Speaker) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Code
}
