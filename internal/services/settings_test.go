package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/repository/mock"
	"github.com/abrezinsky/gavel/internal/services"
	"github.com/abrezinsky/gavel/internal/testutil"
)

type evictRecorder struct {
	calls int
}

func (e *evictRecorder) EvictAll() { e.calls++ }

func TestSettingsService_BaseURL(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	// Default should be empty (app.go sets it with detected IP on startup)
	url, err := svc.GetBaseURL(ctx)
	if err != nil {
		t.Fatalf("GetBaseURL failed: %v", err)
	}
	if url != "" {
		t.Errorf("expected empty default URL, got %q", url)
	}

	customURL := "https://gavel.example.com"
	if err := svc.SetBaseURL(ctx, customURL); err != nil {
		t.Fatalf("SetBaseURL failed: %v", err)
	}
	url, err = svc.GetBaseURL(ctx)
	if err != nil {
		t.Fatalf("GetBaseURL failed: %v", err)
	}
	if url != customURL {
		t.Errorf("expected URL %q, got %q", customURL, url)
	}
}

func TestSettingsService_RosterURL(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	if err := svc.SetRosterURL(ctx, "http://roster.local"); err != nil {
		t.Fatalf("SetRosterURL failed: %v", err)
	}
	url, err := svc.GetRosterURL(ctx)
	if err != nil {
		t.Fatalf("GetRosterURL failed: %v", err)
	}
	if url != "http://roster.local" {
		t.Errorf("expected roster URL, got %q", url)
	}
}

func TestSettingsService_GetBaseURL_DatabaseError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.GetSettingError = errors.New("database locked")
	svc := services.NewSettingsService(logger.Discard(), repo)

	if _, err := svc.GetBaseURL(context.Background()); err == nil {
		t.Error("expected database error to propagate")
	}
	if _, err := svc.AllSettings(context.Background()); err == nil {
		t.Error("expected AllSettings to fail")
	}
}

func TestSettingsService_GetSetSetting(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	if err := svc.SetSetting(ctx, "custom_key", "custom_value"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	value, err := svc.GetSetting(ctx, "custom_key")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "custom_value" {
		t.Errorf("expected 'custom_value', got %q", value)
	}
}

func TestSettingsService_AllSettings(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	svc.SetBaseURL(ctx, "http://gavel.local")
	svc.SetRosterURL(ctx, "http://roster.local")

	settings, err := svc.AllSettings(ctx)
	if err != nil {
		t.Fatalf("AllSettings failed: %v", err)
	}
	if settings["base_url"] != "http://gavel.local" {
		t.Errorf("expected base_url, got %v", settings["base_url"])
	}
	if settings["roster_url"] != "http://roster.local" {
		t.Errorf("expected roster_url, got %v", settings["roster_url"])
	}
}

func TestSettingsService_UpdateSettings_Partial(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	svc.SetBaseURL(ctx, "http://original-base.local")

	err := svc.UpdateSettings(ctx, services.Settings{RosterURL: "http://updated.local"})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	url, _ := svc.GetRosterURL(ctx)
	if url != "http://updated.local" {
		t.Errorf("expected updated roster URL, got %q", url)
	}
	baseURL, _ := svc.GetBaseURL(ctx)
	if baseURL != "http://original-base.local" {
		t.Errorf("expected original base URL, got %q", baseURL)
	}
}

func TestSettingsService_UpdateSettings_Error(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.SetSettingError = errors.New("read only")
	svc := services.NewSettingsService(logger.Discard(), repo)

	if err := svc.UpdateSettings(context.Background(), services.Settings{BaseURL: "x"}); err == nil {
		t.Error("expected error from base URL write")
	}
	if err := svc.UpdateSettings(context.Background(), services.Settings{RosterURL: "x"}); err == nil {
		t.Error("expected error from roster URL write")
	}
}

func TestSettingsService_ResetTables_InvalidTable(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)

	_, err := svc.ResetTables(context.Background(), []string{"invalid_table"})
	if err == nil {
		t.Fatal("expected error for invalid table, got nil")
	}
	if _, ok := err.(*services.InvalidTableError); !ok {
		t.Errorf("expected InvalidTableError, got %T", err)
	}
}

func TestSettingsService_ResetTables_EmptyList(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)

	if _, err := svc.ResetTables(context.Background(), []string{}); err != services.ErrNoTablesSpecified {
		t.Errorf("expected ErrNoTablesSpecified, got %v", err)
	}
}

func TestSettingsService_ResetTables_AddsDependents(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	evicter := &evictRecorder{}
	svc.SetEvicter(evicter)
	ctx := context.Background()

	id, err := repo.CreateCommittee(ctx, "DISEC", models.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateCommittee failed: %v", err)
	}

	result, err := svc.ResetTables(ctx, []string{"committees"})
	if err != nil {
		t.Fatalf("ResetTables failed: %v", err)
	}
	want := []string{"activity_log", "snapshots", "motions", "countries", "committees"}
	if len(result.Tables) != len(want) {
		t.Fatalf("expected tables %v, got %v", want, result.Tables)
	}
	for i := range want {
		if result.Tables[i] != want[i] {
			t.Errorf("table %d: expected %s, got %s", i, want[i], result.Tables[i])
		}
	}
	if _, err := repo.GetCommittee(ctx, id); err == nil {
		t.Error("expected committee to be gone")
	}
	if evicter.calls != 1 {
		t.Errorf("expected sessions to be evicted once, got %d", evicter.calls)
	}

	result, err = svc.ResetTables(ctx, []string{"motions", "snapshots"})
	if err != nil {
		t.Fatalf("ResetTables failed: %v", err)
	}
	if len(result.Tables) != 2 || result.Tables[0] != "snapshots" || result.Tables[1] != "motions" {
		t.Errorf("expected [snapshots motions], got %v", result.Tables)
	}
}
