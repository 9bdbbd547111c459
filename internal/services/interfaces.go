package services

import (
	"context"

	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/session"
)

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastSession(view SessionView)
	BroadcastTick(update TickUpdate)
}

// SessionServicer defines the interface for live session operations
type SessionServicer interface {
	State(ctx context.Context, committeeID int64) (*SessionView, error)
	AddSpeaker(ctx context.Context, committeeID int64, code string) (*SessionView, error)
	RemoveSpeaker(ctx context.Context, committeeID int64, code string) (*SessionView, error)
	NextSpeaker(ctx context.Context, committeeID int64) (*SessionView, error)
	Yield(ctx context.Context, committeeID int64, toCode string) (*SessionView, error)
	ReorderSpeakers(ctx context.Context, committeeID int64, codes []string) (*SessionView, error)
	DropSpeaker(ctx context.Context, committeeID int64, payload session.DragPayload, target session.DropTarget) (*SessionView, error)
	StartTimer(ctx context.Context, committeeID int64) (*SessionView, error)
	PauseTimer(ctx context.Context, committeeID int64) (*SessionView, error)
	ToggleTimer(ctx context.Context, committeeID int64) (*SessionView, error)
	ResetTimer(ctx context.Context, committeeID int64) (*SessionView, error)
	SetTime(ctx context.Context, committeeID int64, minutes, seconds int, updateMotion bool) (*SessionView, error)
	CreateMotion(ctx context.Context, committeeID int64, in session.MotionInput) (*models.Motion, error)
	Vote(ctx context.Context, committeeID, motionID int64, votesFor, votesAgainst, abstentions int) (*session.VoteOutcome, error)
	Extend(ctx context.Context, committeeID, motionID int64, req session.ExtensionRequest) (*session.VoteOutcome, error)
	Adjourn(ctx context.Context, committeeID, motionID int64) (*models.Motion, error)
	EditMotion(ctx context.Context, committeeID, motionID int64, name string) (*models.Motion, error)
	ReorderMotions(ctx context.Context, committeeID int64, ids []int64) ([]models.Motion, error)
	Refresh(ctx context.Context, committeeID int64)
	Evict(committeeID int64)
	EvictAll()
	SetBroadcaster(b Broadcaster)
	Close()
}

// CommitteeServicer defines the interface for committee and roster operations
type CommitteeServicer interface {
	CreateCommittee(ctx context.Context, name string, settings *models.CommitteeSettings) (int64, error)
	GetCommittee(ctx context.Context, id int64) (*models.Committee, error)
	ListCommittees(ctx context.Context) ([]models.Committee, error)
	UpdateSettings(ctx context.Context, id int64, settings models.CommitteeSettings) error
	DeleteCommittee(ctx context.Context, id int64) error
	Members(ctx context.Context, id int64) ([]models.Country, error)
	SetMembers(ctx context.Context, id int64, countries []models.Country) (int, error)
	SetAttendance(ctx context.Context, id int64, code string, attendance models.Attendance) error
	ImportFromProvider(ctx context.Context, providerURL, ref string) (*ImportResult, error)
	ImportYAML(ctx context.Context, data []byte) (*ImportResult, error)
	SessionURL(ctx context.Context, id int64) (string, error)
	GenerateShareQR(ctx context.Context, id int64) ([]byte, error)
	SetSessions(c SessionCache)
}

// ActivityServicer defines the interface for the committee activity log
type ActivityServicer interface {
	Record(ctx context.Context, committeeID int64, action, detail string)
	SpeakerAdded(ctx context.Context, committeeID int64, sp models.Speaker)
	SpeakerRemoved(ctx context.Context, committeeID int64, sp models.Speaker)
	SpeakersReordered(ctx context.Context, committeeID int64)
	TimeYielded(ctx context.Context, committeeID int64, from, to models.Speaker, remaining int)
	SpeakingTimeSet(ctx context.Context, committeeID int64, seconds int, motion *models.Motion)
	List(ctx context.Context, committeeID int64, limit int) ([]models.ActivityEntry, error)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	GetRosterURL(ctx context.Context) (string, error)
	SetRosterURL(ctx context.Context, url string) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]interface{}, error)
	UpdateSettings(ctx context.Context, settings Settings) error
	ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error)
	SetEvicter(e Evicter)
}

// Ensure concrete types implement interfaces
var (
	_ SessionServicer   = (*SessionService)(nil)
	_ CommitteeServicer = (*CommitteeService)(nil)
	_ ActivityServicer  = (*ActivityService)(nil)
	_ SettingsServicer  = (*SettingsService)(nil)
	_ SessionCache      = (*SessionService)(nil)
	_ Evicter           = (*SessionService)(nil)
)
