package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/repository/mock"
	"github.com/abrezinsky/gavel/internal/services"
	"github.com/abrezinsky/gavel/internal/testutil"
)

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{60, "1:00"},
		{754, "12:34"},
		{-7, "-0:07"},
		{-65, "-1:05"},
	}
	for _, tt := range tests {
		if got := services.FormatSeconds(tt.seconds); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestActivityService_RecordsNewestFirst(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	id := testutil.SeedCommittee(t, repo, "UNSC")
	svc := services.NewActivityService(logger.Discard(), repo, nil)
	ctx := context.Background()

	france := models.Speaker{Code: "FRA", Name: "France"}
	japan := models.Speaker{Code: "JPN"}
	svc.SpeakerAdded(ctx, id, france)
	svc.TimeYielded(ctx, id, france, japan, 42)
	svc.SpeakingTimeSet(ctx, id, 90, &models.Motion{Name: "Mod on trade"})
	svc.SpeakingTimeSet(ctx, id, 45, nil)

	entries, err := svc.List(ctx, id, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []struct{ action, detail string }{
		{services.ActionSpeakingTimeSet, "default speaking time set to 0:45"},
		{services.ActionSpeakingTimeSet, "speaking time for Mod on trade set to 1:30"},
		{services.ActionTimeYielded, "France yielded 0:42 to JPN"},
		{services.ActionSpeakerAdded, "France"},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Action != w.action || entries[i].Detail != w.detail {
			t.Errorf("entry %d = %s %q, want %s %q", i, entries[i].Action, entries[i].Detail, w.action, w.detail)
		}
	}

	limited, _ := svc.List(ctx, id, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d entries", len(limited))
	}
}

func TestActivityService_FailureIsSwallowed(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.AddActivityError = stderrors.New("disk full")
	svc := services.NewActivityService(logger.Discard(), repo, nil)

	svc.Record(context.Background(), 1, services.ActionMotionCreated, "anything")
}
