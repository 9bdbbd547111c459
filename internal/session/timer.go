// Package session holds the speaker-queue and motion timing state machine.
//
// Every type here is a plain value and every operation returns the next value
// instead of mutating shared state, so the controller in internal/services can
// apply a transition, persist it and broadcast it without partial updates.
package session

import (
	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/models"
)

// Timer is the single speaking clock of a session. CurrentTime goes negative
// once a speaker runs over and keeps going until someone pauses it.
type Timer struct {
	CurrentTime int  `json:"current_time"`
	TotalTime   int  `json:"total_time"`
	Running     bool `json:"is_running"`
}

// NewTimer returns a paused timer loaded with total seconds
func NewTimer(total int) Timer {
	return Timer{CurrentTime: total, TotalTime: total}
}

func (t Timer) Start() Timer {
	t.Running = true
	return t
}

func (t Timer) Pause() Timer {
	t.Running = false
	return t
}

func (t Timer) Toggle() Timer {
	t.Running = !t.Running
	return t
}

// Reset reloads the configured total and pauses
func (t Timer) Reset() Timer {
	t.CurrentTime = t.TotalTime
	t.Running = false
	return t
}

// SetTime loads minutes:seconds as both total and current time.
// The running flag is left alone.
func (t Timer) SetTime(minutes, seconds int) (Timer, error) {
	if minutes < 0 || seconds < 0 {
		return t, errors.Validation("time cannot be negative")
	}
	total := minutes*60 + seconds
	t.TotalTime = total
	t.CurrentTime = total
	return t, nil
}

// Load sets both total and current time to seconds and pauses
func (t Timer) Load(seconds int) Timer {
	t.TotalTime = seconds
	t.CurrentTime = seconds
	t.Running = false
	return t
}

// Tick advances the clock by one second. There is no floor.
func (t Timer) Tick() Timer {
	if t.Running {
		t.CurrentTime--
	}
	return t
}

// Overtime reports whether the speaker has run past zero
func (t Timer) Overtime() bool {
	return t.CurrentTime < 0
}

// State converts to the serializable form used by snapshots and the API
func (t Timer) State() models.TimerState {
	return models.TimerState{CurrentTime: t.CurrentTime, TotalTime: t.TotalTime, IsRunning: t.Running}
}

// TimerFromState is the inverse of Timer.State
func TimerFromState(s models.TimerState) Timer {
	return Timer{CurrentTime: s.CurrentTime, TotalTime: s.TotalTime, Running: s.IsRunning}
}
