package repository

import (
	"context"

	"github.com/abrezinsky/gavel/internal/models"
)

// CommitteeRepository defines committee and roster data operations
type CommitteeRepository interface {
	CreateCommittee(ctx context.Context, name string, settings models.CommitteeSettings) (int64, error)
	CommitteeExists(ctx context.Context, name string) (bool, error)
	GetCommittee(ctx context.Context, id int64) (*models.Committee, error)
	ListCommittees(ctx context.Context) ([]models.Committee, error)
	UpdateCommitteeSettings(ctx context.Context, id int64, settings models.CommitteeSettings) error
	DeleteCommittee(ctx context.Context, id int64) error
	ListCountries(ctx context.Context, committeeID int64) ([]models.Country, error)
	ReplaceCountries(ctx context.Context, committeeID int64, countries []models.Country) error
	SetAttendance(ctx context.Context, committeeID int64, code string, attendance models.Attendance) error
}

// MotionRepository defines motion data operations
type MotionRepository interface {
	CreateMotion(ctx context.Context, m models.Motion) (int64, error)
	GetMotion(ctx context.Context, id int64) (*models.Motion, error)
	ListMotions(ctx context.Context, committeeID int64) ([]models.Motion, error)
	UpdateMotion(ctx context.Context, m models.Motion) error
	SettleMotion(ctx context.Context, m models.Motion, related ...models.Motion) (*models.Motion, error)
	UpdateMotionOrder(ctx context.Context, committeeID int64, ids []int64) error
}

// SnapshotRepository stores the cached session state per committee
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, committeeID int64, snap models.Snapshot) error
	GetSnapshot(ctx context.Context, committeeID int64) (*models.Snapshot, error)
	DeleteSnapshot(ctx context.Context, committeeID int64) error
}

// ActivityRepository defines activity log operations
type ActivityRepository interface {
	AddActivity(ctx context.Context, entry models.ActivityEntry) (int64, error)
	ListActivity(ctx context.Context, committeeID int64, limit int) ([]models.ActivityEntry, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ClearTable(ctx context.Context, table string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	CommitteeRepository
	MotionRepository
	SnapshotRepository
	ActivityRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
