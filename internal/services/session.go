package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/metrics"
	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/repository"
	"github.com/abrezinsky/gavel/internal/session"
)

// SessionRepository defines the repository methods needed by SessionService
type SessionRepository interface {
	repository.MotionRepository
	repository.SnapshotRepository
	GetCommittee(ctx context.Context, id int64) (*models.Committee, error)
}

// SessionView is the whole floor of one committee as clients render it
type SessionView struct {
	CommitteeID         int64                    `json:"committee_id"`
	CommitteeName       string                   `json:"committee_name"`
	Version             uint64                   `json:"version"`
	Settings            models.CommitteeSettings `json:"settings"`
	Members             []models.Country         `json:"members"`
	CurrentSpeaker      *models.Speaker          `json:"current_speaker"`
	SpeakerQueue        []models.Speaker         `json:"speaker_queue"`
	Timer               models.TimerState        `json:"timer"`
	Overtime            bool                     `json:"overtime"`
	DefaultSpeakingTime int                      `json:"default_speaking_time"`
	ActiveMotion        *models.Motion           `json:"active_motion"`
	Motions             []models.Motion          `json:"motions"`
}

// TickUpdate is pushed once per second while a timer runs
type TickUpdate struct {
	CommitteeID int64             `json:"committee_id"`
	Version     uint64            `json:"version"`
	Timer       models.TimerState `json:"timer"`
	Overtime    bool              `json:"overtime"`
}

// controller owns the live session of one committee. Every field is guarded
// by mu; the tick loop is the only goroutine touching it besides callers.
type controller struct {
	mu         sync.Mutex
	committee  models.Committee
	state      session.State
	motions    []models.Motion
	version    uint64
	cancelTick context.CancelFunc
	generation uint64
	evicted    bool

	// saveMu orders snapshot writes; saved is the version last written
	saveMu sync.Mutex
	saved  uint64
}

// effect runs after the controller lock is released
type effect func(ctx context.Context)

// SessionOption configures a SessionService
type SessionOption func(*SessionService)

// WithTickInterval overrides the one second timer resolution
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *SessionService) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *SessionService) { s.metrics = m }
}

// WithClock replaces time.Now for motion timestamps and snapshots
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// WithDefaultSpeakingTime is used for committees that configure none
func WithDefaultSpeakingTime(seconds int) SessionOption {
	return func(s *SessionService) {
		if seconds > 0 {
			s.defaultSpeakingTime = seconds
		}
	}
}

// SessionService runs one controller per committee, created on first use
type SessionService struct {
	log                 logger.Logger
	repo                SessionRepository
	activity            ActivityServicer
	metrics             *metrics.Metrics
	broadcaster         Broadcaster
	tickInterval        time.Duration
	defaultSpeakingTime int
	now                 func() time.Time

	mu          sync.Mutex
	controllers map[int64]*controller
	closed      bool
	wg          sync.WaitGroup
}

// NewSessionService creates a new SessionService
func NewSessionService(log logger.Logger, repo SessionRepository, activity ActivityServicer, opts ...SessionOption) *SessionService {
	s := &SessionService{
		log:                 log,
		repo:                repo,
		activity:            activity,
		tickInterval:        time.Second,
		defaultSpeakingTime: models.DefaultSpeakingTime,
		now:                 time.Now,
		controllers:         make(map[int64]*controller),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// ==================== Controller lifecycle ====================

func (s *SessionService) controller(ctx context.Context, committeeID int64) (*controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if c, ok := s.controllers[committeeID]; ok {
		return c, nil
	}
	c, err := s.open(ctx, committeeID)
	if err != nil {
		return nil, err
	}
	s.controllers[committeeID] = c
	return c, nil
}

// open builds a controller and restores the cached session if there is one.
// A broken snapshot only costs the cached floor, never the session.
func (s *SessionService) open(ctx context.Context, committeeID int64) (*controller, error) {
	committee, err := s.repo.GetCommittee(ctx, committeeID)
	if err == repository.ErrNotFound {
		return nil, errors.NotFoundf("committee %d not found", committeeID)
	}
	if err != nil {
		return nil, err
	}
	motions, err := s.repo.ListMotions(ctx, committeeID)
	if err != nil {
		return nil, err
	}

	speaking := committee.Settings.SpeakingTime
	if speaking <= 0 {
		speaking = s.defaultSpeakingTime
	}
	c := &controller{
		committee: *committee,
		state:     session.NewState(committeeID, speaking),
		motions:   motions,
	}

	snap, err := s.repo.GetSnapshot(ctx, committeeID)
	switch {
	case err == nil:
		c.state = session.StateFromSnapshot(committeeID, *snap)
		if m := c.activeMotion(); m == nil || m.Status != models.StatusInProgress {
			c.state.ActiveMotionID = 0
		}
		s.log.Info("Session restored", "committee_id", committeeID, "saved_at", snap.SavedAt)
	case err == repository.ErrNotFound:
		s.log.Debug("Session opened", "committee_id", committeeID)
	default:
		s.log.Warn("Failed to restore session snapshot", "committee_id", committeeID, "error", err)
	}
	return c, nil
}

// Refresh reloads committee settings and roster into a live session
func (s *SessionService) Refresh(ctx context.Context, committeeID int64) {
	s.mu.Lock()
	c, ok := s.controllers[committeeID]
	s.mu.Unlock()
	if !ok {
		return
	}

	committee, err := s.repo.GetCommittee(ctx, committeeID)
	if err != nil {
		s.log.Warn("Failed to refresh session committee", "committee_id", committeeID, "error", err)
		return
	}
	c.mu.Lock()
	changed := committee.Settings.SpeakingTime != c.committee.Settings.SpeakingTime
	c.committee = *committee
	if changed {
		c.state = c.state.ChangeDefault(committee.Settings.SpeakingTime)
	}
	c.version++
	view := c.view()
	snap := c.state.Snapshot(c.committee.Name, s.now().UTC())
	c.mu.Unlock()

	if changed {
		s.persist(ctx, c, committeeID, view.Version, snap)
	}
	s.broadcastState(view)
}

// Evict stops and forgets one committee's live session
func (s *SessionService) Evict(committeeID int64) {
	s.mu.Lock()
	c, ok := s.controllers[committeeID]
	delete(s.controllers, committeeID)
	s.mu.Unlock()
	if ok {
		s.retire(c)
	}
}

// EvictAll forgets every live session
func (s *SessionService) EvictAll() {
	s.mu.Lock()
	all := s.controllers
	s.controllers = make(map[int64]*controller)
	s.mu.Unlock()
	for _, c := range all {
		s.retire(c)
	}
}

func (s *SessionService) retire(c *controller) {
	c.mu.Lock()
	c.evicted = true
	s.stopTicking(c)
	c.mu.Unlock()
}

// Close stops every tick loop and waits for them to exit
func (s *SessionService) Close() {
	s.mu.Lock()
	s.closed = true
	all := s.controllers
	s.controllers = make(map[int64]*controller)
	s.mu.Unlock()

	for _, c := range all {
		s.retire(c)
	}
	s.wg.Wait()
}

// ==================== Tick loop ====================

// syncTicking makes the loop match the running flag. Caller holds c.mu.
func (s *SessionService) syncTicking(c *controller) {
	if c.state.Timer.Running {
		s.startTicking(c)
	} else {
		s.stopTicking(c)
	}
}

func (s *SessionService) startTicking(c *controller) {
	if c.cancelTick != nil || c.evicted {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c.generation++
	c.cancelTick = cancel
	s.metrics.TickLoopStarted()
	go s.tickLoop(ctx, c, c.generation)
}

func (s *SessionService) stopTicking(c *controller) {
	if c.cancelTick == nil {
		return
	}
	c.cancelTick()
	c.cancelTick = nil
	c.generation++
}

// tickLoop decrements the timer once per interval. A tick that finds a newer
// generation belongs to a loop that was already replaced and is dropped.
func (s *SessionService) tickLoop(ctx context.Context, c *controller, generation uint64) {
	defer s.wg.Done()
	defer s.metrics.TickLoopStopped()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.generation != generation || !c.state.Timer.Running {
				c.mu.Unlock()
				return
			}
			c.state.Timer = c.state.Timer.Tick()
			c.version++
			update := TickUpdate{
				CommitteeID: c.committee.ID,
				Version:     c.version,
				Timer:       c.state.Timer.State(),
				Overtime:    c.state.Timer.Overtime(),
			}
			c.mu.Unlock()

			s.metrics.Tick()
			if s.broadcaster != nil {
				s.broadcaster.BroadcastTick(update)
			}
		}
	}
}

// ==================== Mutation pipeline ====================

// mutate applies fn under the controller lock, then persists, logs and
// broadcasts the result. Persistence failures never fail the command.
func (s *SessionService) mutate(ctx context.Context, committeeID int64, op string, fn func(c *controller) (effect, error)) (*SessionView, error) {
	c, err := s.controller(ctx, committeeID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	after, err := fn(c)
	if err != nil {
		c.mu.Unlock()
		s.metrics.Rejected(op, errors.KindOf(err).String())
		s.log.Debug("Session command rejected", "committee_id", committeeID, "op", op, "error", err)
		return nil, err
	}
	s.syncTicking(c)
	c.version++
	view := c.view()
	snap := c.state.Snapshot(c.committee.Name, s.now().UTC())
	c.mu.Unlock()

	s.persist(ctx, c, committeeID, view.Version, snap)
	if after != nil {
		after(ctx)
	}
	s.broadcastState(view)
	s.metrics.Mutation(op)
	return &view, nil
}

// persist saves snap unless a later version has already been written
func (s *SessionService) persist(ctx context.Context, c *controller, committeeID int64, version uint64, snap models.Snapshot) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if version <= c.saved {
		s.log.Debug("Skipping stale session snapshot", "committee_id", committeeID, "version", version)
		return
	}
	if err := s.repo.SaveSnapshot(ctx, committeeID, snap); err != nil {
		s.log.Warn("Failed to save session snapshot", "committee_id", committeeID, "error", err)
		s.metrics.SnapshotFailed()
		return
	}
	c.saved = version
}

func (s *SessionService) broadcastState(view SessionView) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSession(view)
	}
}

// State returns the current floor of a committee, opening it if needed
func (s *SessionService) State(ctx context.Context, committeeID int64) (*SessionView, error) {
	c, err := s.controller(ctx, committeeID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	view := c.view()
	return &view, nil
}

// ==================== Speakers ====================

// AddSpeaker puts a roster member on the floor or at the end of the queue
func (s *SessionService) AddSpeaker(ctx context.Context, committeeID int64, code string) (*SessionView, error) {
	return s.mutate(ctx, committeeID, "add_speaker", func(c *controller) (effect, error) {
		sp, ok := c.member(code)
		if !ok {
			return nil, errors.NotFoundf("%s is not on the roster", code)
		}
		q, err := c.state.Queue.Add(sp, c.proposerCode())
		if err != nil {
			return nil, err
		}
		c.state.Queue = q
		return func(ctx context.Context) { s.activity.SpeakerAdded(ctx, committeeID, sp) }, nil
	})
}

// RemoveSpeaker takes a delegate off the floor or out of the queue
func (s *SessionService) RemoveSpeaker(ctx context.Context, committeeID int64, code string) (*SessionView, error) {
	return s.mutate(ctx, committeeID, "remove_speaker", func(c *controller) (effect, error) {
		q, removed, err := c.state.Queue.Remove(code)
		if err != nil {
			return nil, err
		}
		c.state.Queue = q
		return func(ctx context.Context) { s.activity.SpeakerRemoved(ctx, committeeID, removed) }, nil
	})
}

// NextSpeaker gives the floor to the head of the queue
func (s *SessionService) NextSpeaker(ctx context.Context, committeeID int64) (*SessionView, error) {
	return s.mutate(ctx, committeeID, "next_speaker", func(c *controller) (effect, error) {
		c.state.Queue, c.state.Timer = c.state.Queue.Next(c.state.Timer, c.base())
		return nil, nil
	})
}

// Yield hands the current speaker's remaining time to a queued delegate
func (s *SessionService) Yield(ctx context.Context, committeeID int64, toCode string) (*SessionView, error) {
	return s.mutate(ctx, committeeID, "yield", func(c *controller) (effect, error) {
		var from models.Speaker
		if c.state.Queue.Current != nil {
			from = *c.state.Queue.Current
		}
		q, t, remaining, err := c.state.Queue.Yield(toCode, c.state.Timer, c.base())
		if err != nil {
			return nil, err
		}
		c.state.Queue, c.state.Timer = q, t
		to := *q.Current
		return func(ctx context.Context) {
			s.metrics.Yielded(remaining)
			s.activity.TimeYielded(ctx, committeeID, from, to, remaining)
		}, nil
	})
}

// ReorderSpeakers replaces the queue order wholesale
func (s *SessionService) ReorderSpeakers(ctx context.Context, committeeID int64, codes []string) (*SessionView, error) {
	return s.mutate(ctx, committeeID, "reorder_speakers", func(c *controller) (effect, error) {
		q, err := c.state.Queue.Reorder(codes)
		if err != nil {
			return nil, err
		}
		c.state.Queue = q
		return func(ctx context.Context) { s.activity.SpeakersReordered(ctx, committeeID) }, nil
	})
}

// DropSpeaker applies a drag-and-drop gesture between the floor and the queue
func (s *SessionService) DropSpeaker(ctx context.Context, committeeID int64, payload session.DragPayload, target session.DropTarget) (*SessionView, error) {
	return s.mutate(ctx, committeeID, "drop_speaker", func(c *controller) (effect, error) {
		q, err := c.state.Queue.Drop(payload, target)
		if err != nil {
			return nil, err
		}
		c.state.Queue = q
		return func(ctx context.Context) { s.activity.SpeakersReordered(ctx, committeeID) }, nil
	})
}

// ==================== Timer ====================

// StartTimer starts the countdown
func (s *SessionService) StartTimer(ctx context.Context, committeeID int64) (*SessionView, error) {
	return s.timer(ctx, committeeID, "start_timer", session.Timer.Start)
}

// PauseTimer stops the countdown
func (s *SessionService) PauseTimer(ctx context.Context, committeeID int64) (*SessionView, error) {
	return s.timer(ctx, committeeID, "pause_timer", session.Timer.Pause)
}

// ToggleTimer flips between running and paused
func (s *SessionService) ToggleTimer(ctx context.Context, committeeID int64) (*SessionView, error) {
	return s.timer(ctx, committeeID, "toggle_timer", session.Timer.Toggle)
}

// ResetTimer reloads the configured total and pauses
func (s *SessionService) ResetTimer(ctx context.Context, committeeID int64) (*SessionView, error) {
	return s.timer(ctx, committeeID, "reset_timer", session.Timer.Reset)
}

func (s *SessionService) timer(ctx context.Context, committeeID int64, op string, fn func(session.Timer) session.Timer) (*SessionView, error) {
	return s.mutate(ctx, committeeID, op, func(c *controller) (effect, error) {
		c.state.Timer = fn(c.state.Timer)
		return nil, nil
	})
}

// SetTime loads minutes:seconds into the timer. With updateMotion the active
// motion's speaking time changes, otherwise the committee default does.
func (s *SessionService) SetTime(ctx context.Context, committeeID int64, minutes, seconds int, updateMotion bool) (*SessionView, error) {
	return s.mutate(ctx, committeeID, "set_time", func(c *controller) (effect, error) {
		t, err := c.state.Timer.SetTime(minutes, seconds)
		if err != nil {
			return nil, err
		}
		total := t.TotalTime
		if total <= 0 {
			return nil, errors.Validation("speaking time must be positive")
		}

		if !updateMotion {
			c.state.Timer = t
			c.state.DefaultSpeakingTime = total
			return func(ctx context.Context) { s.activity.SpeakingTimeSet(ctx, committeeID, total, nil) }, nil
		}

		active := c.activeMotion()
		if active == nil {
			return nil, errors.Policy("there is no active motion to update")
		}
		m, err := session.SetSpeakingTime(*active, total)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdateMotion(ctx, m); err != nil {
			return nil, err
		}
		c.putMotion(m)
		c.state.Timer = t
		return func(ctx context.Context) { s.activity.SpeakingTimeSet(ctx, committeeID, total, &m) }, nil
	})
}

// ==================== Motions ====================

// CreateMotion validates and stores a new Pending motion
func (s *SessionService) CreateMotion(ctx context.Context, committeeID int64, in session.MotionInput) (*models.Motion, error) {
	var created models.Motion
	_, err := s.mutate(ctx, committeeID, "create_motion", func(c *controller) (effect, error) {
		in.CommitteeID = committeeID
		if sp, ok := c.member(strings.TrimSpace(in.ProposingCountry)); ok {
			in.ProposingCountry = sp.Code
		}
		m, err := session.NewMotion(in, c.committee.Settings, s.now().UTC())
		if err != nil {
			return nil, err
		}
		if created, err = s.store(ctx, c, m); err != nil {
			return nil, err
		}
		m = created
		return func(ctx context.Context) {
			s.activity.Record(ctx, committeeID, ActionMotionCreated, fmt.Sprintf("%s proposed %s", m.ProposingCountry, m.Name))
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Vote records a tally. A passing caucus or GSL takes over the floor; a
// passing extension is merged into its parent.
func (s *SessionService) Vote(ctx context.Context, committeeID, motionID int64, votesFor, votesAgainst, abstentions int) (*session.VoteOutcome, error) {
	var outcome session.VoteOutcome
	_, err := s.mutate(ctx, committeeID, "vote", func(c *controller) (effect, error) {
		m := c.motion(motionID)
		if m == nil {
			return nil, errors.NotFoundf("motion %d not found", motionID)
		}
		out, err := session.RecordVote(*m, votesFor, votesAgainst, abstentions)
		if err != nil {
			return nil, err
		}
		if out.Motion, err = s.settle(ctx, c, out); err != nil {
			return nil, err
		}
		outcome = out
		return func(ctx context.Context) {
			s.metrics.Vote(out.Passed)
			s.activity.Record(ctx, committeeID, ActionMotionVoted,
				fmt.Sprintf("%s %s (%d-%d-%d)", out.Motion.Name, strings.ToLower(string(out.Motion.Status)), votesFor, votesAgainst, abstentions))
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Extend requests more time on an in-progress caucus or GSL
func (s *SessionService) Extend(ctx context.Context, committeeID, motionID int64, req session.ExtensionRequest) (*session.VoteOutcome, error) {
	var outcome session.VoteOutcome
	_, err := s.mutate(ctx, committeeID, "extend", func(c *controller) (effect, error) {
		parent := c.motion(motionID)
		if parent == nil {
			return nil, errors.NotFoundf("motion %d not found", motionID)
		}
		if sp, ok := c.member(strings.TrimSpace(req.ProposingCountry)); ok {
			req.ProposingCountry = sp.Code
		}
		out, err := session.NewExtension(*parent, req, s.now().UTC())
		if err != nil {
			return nil, err
		}
		if out.Motion, err = s.settle(ctx, c, out); err != nil {
			return nil, err
		}
		outcome = out
		ruled := req.Passed != nil
		return func(ctx context.Context) {
			if ruled {
				s.metrics.Vote(out.Passed)
			}
			s.activity.Record(ctx, committeeID, ActionMotionExtended,
				fmt.Sprintf("%s (%s)", out.Motion.Name, strings.ToLower(string(out.Motion.Status))))
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Adjourn closes an in-progress caucus or GSL; the floor reverts to the default time
func (s *SessionService) Adjourn(ctx context.Context, committeeID, motionID int64) (*models.Motion, error) {
	var closed models.Motion
	_, err := s.mutate(ctx, committeeID, "adjourn", func(c *controller) (effect, error) {
		m := c.motion(motionID)
		if m == nil {
			return nil, errors.NotFoundf("motion %d not found", motionID)
		}
		var err error
		if closed, err = session.Adjourn(*m); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateMotion(ctx, closed); err != nil {
			return nil, err
		}
		c.putMotion(closed)
		if c.state.ActiveMotionID == closed.ID {
			c.state = c.state.ClearActive()
		}
		name := closed.Name
		return func(ctx context.Context) { s.activity.Record(ctx, committeeID, ActionMotionAdjourned, name) }, nil
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

// EditMotion renames a motion
func (s *SessionService) EditMotion(ctx context.Context, committeeID, motionID int64, name string) (*models.Motion, error) {
	var edited models.Motion
	_, err := s.mutate(ctx, committeeID, "edit_motion", func(c *controller) (effect, error) {
		m := c.motion(motionID)
		if m == nil {
			return nil, errors.NotFoundf("motion %d not found", motionID)
		}
		var err error
		if edited, err = session.Rename(*m, name); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateMotion(ctx, edited); err != nil {
			return nil, err
		}
		c.putMotion(edited)
		detail := edited.Name
		return func(ctx context.Context) { s.activity.Record(ctx, committeeID, ActionMotionEdited, detail) }, nil
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

// ReorderMotions rewrites the display order of a committee's motions
func (s *SessionService) ReorderMotions(ctx context.Context, committeeID int64, ids []int64) ([]models.Motion, error) {
	var ordered []models.Motion
	_, err := s.mutate(ctx, committeeID, "reorder_motions", func(c *controller) (effect, error) {
		var err error
		if ordered, err = session.Reorder(c.motions, ids); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateMotionOrder(ctx, committeeID, ids); err != nil {
			return nil, err
		}
		c.motions = ordered
		return func(ctx context.Context) {
			s.activity.Record(ctx, committeeID, ActionMotionsReordered, fmt.Sprintf("%d motions", len(ids)))
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]models.Motion(nil), ordered...), nil
}

// store inserts a new motion and caches it as the database returns it
func (s *SessionService) store(ctx context.Context, c *controller, m models.Motion) (models.Motion, error) {
	id, err := s.repo.CreateMotion(ctx, m)
	if err != nil {
		return m, err
	}
	stored, err := s.repo.GetMotion(ctx, id)
	if err != nil {
		return m, err
	}
	c.motions = append(c.motions, *stored)
	return *stored, nil
}

// settle writes a vote outcome and applies its side effects on the floor.
// Caller holds c.mu.
func (s *SessionService) settle(ctx context.Context, c *controller, out session.VoteOutcome) (models.Motion, error) {
	m := out.Motion

	var merged *models.Motion
	previous := 0
	if out.Merges {
		parent := c.motion(m.ParentMotionID())
		if parent == nil {
			return m, errors.NotFoundf("motion %d not found", m.ParentMotionID())
		}
		previous = parent.SpeakingTime
		p, err := session.MergeExtension(*parent, m)
		if err != nil {
			return m, err
		}
		merged = &p
	}

	var superseded *models.Motion
	if out.Activates {
		if prev := c.activeMotion(); prev != nil && prev.ID != m.ID && prev.Status == models.StatusInProgress {
			closed, err := session.Adjourn(*prev)
			if err != nil {
				return m, err
			}
			superseded = &closed
		}
	}

	var related []models.Motion
	if merged != nil {
		related = append(related, *merged)
	}
	if superseded != nil {
		related = append(related, *superseded)
	}
	stored, err := s.repo.SettleMotion(ctx, m, related...)
	if err != nil {
		return m, err
	}
	m = *stored

	c.putMotion(m)
	if merged != nil {
		c.putMotion(*merged)
		c.state = c.state.RetimeActive(*merged, previous)
	}
	if superseded != nil {
		c.putMotion(*superseded)
	}
	if out.Activates {
		c.state = c.state.ActivateMotion(m, c.proposer(m))
	}
	return m, nil
}

// ==================== controller helpers ====================

// motion returns a pointer into the cache, or nil
func (c *controller) motion(id int64) *models.Motion {
	for i := range c.motions {
		if c.motions[i].ID == id {
			return &c.motions[i]
		}
	}
	return nil
}

func (c *controller) putMotion(m models.Motion) {
	if existing := c.motion(m.ID); existing != nil {
		*existing = m
		return
	}
	c.motions = append(c.motions, m)
}

func (c *controller) activeMotion() *models.Motion {
	if c.state.ActiveMotionID == 0 {
		return nil
	}
	return c.motion(c.state.ActiveMotionID)
}

// base is the speaking time a newly seated speaker starts from
func (c *controller) base() int {
	return c.state.BaseSpeakingTime(c.activeMotion())
}

// member finds a roster entry by code, then by name, ignoring case
func (c *controller) member(ref string) (models.Speaker, bool) {
	if ref == "" {
		return models.Speaker{}, false
	}
	for _, country := range c.committee.Countries {
		if models.SameCode(country.Code, ref) {
			return models.SpeakerFromCountry(country), true
		}
	}
	for _, country := range c.committee.Countries {
		if strings.EqualFold(country.Name, ref) {
			return models.SpeakerFromCountry(country), true
		}
	}
	return models.Speaker{}, false
}

// proposer resolves a motion's proposing country to a speaker. Delegations
// missing from the roster still get the floor under their given name.
func (c *controller) proposer(m models.Motion) models.Speaker {
	if sp, ok := c.member(m.ProposingCountry); ok {
		return sp
	}
	return models.Speaker{
		Code:       m.ProposingCountry,
		Name:       m.ProposingCountry,
		Attendance: models.AttendancePresent,
	}
}

func (c *controller) proposerCode() string {
	if active := c.activeMotion(); active != nil {
		return c.proposer(*active).Code
	}
	return ""
}

func (c *controller) view() SessionView {
	v := SessionView{
		CommitteeID:         c.committee.ID,
		CommitteeName:       c.committee.Name,
		Version:             c.version,
		Settings:            c.committee.Settings,
		Members:             append([]models.Country{}, c.committee.Countries...),
		SpeakerQueue:        append([]models.Speaker{}, c.state.Queue.Upcoming...),
		Timer:               c.state.Timer.State(),
		Overtime:            c.state.Timer.Overtime(),
		DefaultSpeakingTime: c.state.DefaultSpeakingTime,
		Motions:             append([]models.Motion{}, c.motions...),
	}
	if c.state.Queue.Current != nil {
		cur := *c.state.Queue.Current
		v.CurrentSpeaker = &cur
	}
	if active := c.activeMotion(); active != nil {
		m := *active
		v.ActiveMotion = &m
	}
	return v
}
