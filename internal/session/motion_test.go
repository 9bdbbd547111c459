package session

import (
	"testing"
	"time"

	"github.com/abrezinsky/gavel/internal/errors"
	"github.com/abrezinsky/gavel/internal/models"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestDerive(t *testing.T) {
	tests := []struct {
		duration, speaking int
		wantSpeakers       int
		wantDivide         bool
	}{
		{15 * 60, 60, 15, true},
		{10 * 60, 45, 13, false},
		{600, 0, 0, false},
		{0, 30, 0, true},
	}
	for _, tt := range tests {
		n, ok := Derive(tt.duration, tt.speaking)
		if n != tt.wantSpeakers || ok != tt.wantDivide {
			t.Errorf("Derive(%d, %d) = %d, %v; want %d, %v", tt.duration, tt.speaking, n, ok, tt.wantSpeakers, tt.wantDivide)
		}
	}
}

func TestNewMotion_Timing(t *testing.T) {
	settings := models.DefaultSettings()

	t.Run("moderated caucus", func(t *testing.T) {
		m, err := NewMotion(MotionInput{
			Type: models.MotionModeratedCaucus, ProposingCountry: "France",
			DurationMinutes: 10, DurationSeconds: 30, SpeakingSeconds: 45,
		}, settings, now)
		if err != nil {
			t.Fatalf("NewMotion: %v", err)
		}
		if m.Duration != 10.5 {
			t.Errorf("expected fractional duration 10.5, got %v", m.Duration)
		}
		if m.TotalSpeakers != 14 || m.TotalTime != 630 || m.SpeakingTime != 45 {
			t.Errorf("unexpected timing %+v", m)
		}
		if m.Status != models.StatusPending || m.Name != string(models.MotionModeratedCaucus) {
			t.Errorf("unexpected status/name %s/%s", m.Status, m.Name)
		}
	})

	t.Run("unmoderated caucus", func(t *testing.T) {
		m, err := NewMotion(MotionInput{
			Type: models.MotionUnmoderatedCaucus, ProposingCountry: "Kenya", DurationMinutes: 5, SpeakingMinutes: 1,
		}, settings, now)
		if err != nil {
			t.Fatalf("NewMotion: %v", err)
		}
		if m.TotalTime != 300 || m.SpeakingTime != 0 || m.TotalSpeakers != 0 {
			t.Errorf("unexpected timing %+v", m)
		}
	})

	t.Run("gsl", func(t *testing.T) {
		m, err := NewMotion(MotionInput{
			Type: models.MotionGSL, ProposingCountry: "Japan", DurationMinutes: 10, SpeakingSeconds: 90,
		}, settings, now)
		if err != nil {
			t.Fatalf("NewMotion: %v", err)
		}
		if m.Duration != 0 {
			t.Errorf("GSL stores no duration, got %v", m.Duration)
		}
		if m.TotalSpeakers != 6 || m.TotalTime != 540 {
			t.Errorf("unexpected timing %+v", m)
		}
	})

	t.Run("untimed", func(t *testing.T) {
		m, err := NewMotion(MotionInput{
			Type: models.MotionCloseDebate, ProposingCountry: "Brazil", Name: "  Close it  ",
		}, settings, now)
		if err != nil {
			t.Fatalf("NewMotion: %v", err)
		}
		if m.TotalTime != 0 || m.Name != "Close it" {
			t.Errorf("unexpected motion %+v", m)
		}
	})
}

func TestNewMotion_Rejections(t *testing.T) {
	disabled := models.DefaultSettings()
	disabled.EnableMotions = false

	tests := []struct {
		name     string
		in       MotionInput
		settings models.CommitteeSettings
		want     errors.Kind
	}{
		{"motions disabled", MotionInput{Type: models.MotionCustom, ProposingCountry: "France"}, disabled, errors.ErrPolicy},
		{"blank proposer", MotionInput{Type: models.MotionCustom, ProposingCountry: " "}, models.DefaultSettings(), errors.ErrValidation},
		{"unknown type", MotionInput{Type: "Filibuster", ProposingCountry: "France"}, models.DefaultSettings(), errors.ErrValidation},
		{"extension directly", MotionInput{Type: models.MotionExtension, ProposingCountry: "France"}, models.DefaultSettings(), errors.ErrValidation},
		{"negative", MotionInput{Type: models.MotionGSL, ProposingCountry: "France", SpeakingSeconds: -1}, models.DefaultSettings(), errors.ErrValidation},
		{"moderated without speaking time", MotionInput{Type: models.MotionModeratedCaucus, ProposingCountry: "France", DurationMinutes: 5}, models.DefaultSettings(), errors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMotion(tt.in, tt.settings, now); !errors.Is(err, tt.want) {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestRecordVote_Majority(t *testing.T) {
	custom := models.Motion{ID: 1, Type: models.MotionCustom, Status: models.StatusPending}

	out, err := RecordVote(custom, 5, 4, 10)
	if err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	if !out.Passed || out.Motion.Status != models.StatusPassed {
		t.Errorf("5-4-10 should pass, got %+v", out)
	}
	if out.Motion.Abstentions != 10 {
		t.Errorf("abstentions not recorded")
	}

	out, _ = RecordVote(custom, 4, 5, 0)
	if out.Passed || out.Motion.Status != models.StatusFailed {
		t.Errorf("4-5-0 should fail, got %+v", out)
	}

	out, _ = RecordVote(custom, 3, 3, 0)
	if out.Passed {
		t.Error("a tie should fail")
	}
}

func TestRecordVote_Transitions(t *testing.T) {
	tests := []struct {
		typ        models.MotionType
		wantStatus models.MotionStatus
		activates  bool
		merges     bool
	}{
		{models.MotionModeratedCaucus, models.StatusInProgress, true, false},
		{models.MotionGSL, models.StatusInProgress, true, false},
		{models.MotionUnmoderatedCaucus, models.StatusPassed, false, false},
		{models.MotionTableDebate, models.StatusPassed, false, false},
		{models.MotionExtension, models.StatusPassed, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			out, err := RecordVote(models.Motion{Type: tt.typ, Status: models.StatusPending}, 2, 1, 0)
			if err != nil {
				t.Fatalf("RecordVote: %v", err)
			}
			if out.Motion.Status != tt.wantStatus || out.Activates != tt.activates || out.Merges != tt.merges {
				t.Errorf("got status=%s activates=%v merges=%v", out.Motion.Status, out.Activates, out.Merges)
			}
		})
	}

	done := models.Motion{Type: models.MotionCustom, Status: models.StatusPassed}
	if _, err := RecordVote(done, 1, 0, 0); !errors.Is(err, errors.ErrPolicy) {
		t.Errorf("expected policy error voting twice, got %v", err)
	}
	pending := models.Motion{Type: models.MotionCustom, Status: models.StatusPending}
	if _, err := RecordVote(pending, -1, 0, 0); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func activeCaucus() models.Motion {
	return models.Motion{
		ID: 7, Name: "Mod on trade", Type: models.MotionModeratedCaucus, Status: models.StatusInProgress,
		Duration: 10, SpeakingTime: 60, TotalSpeakers: 10, TotalTime: 600,
	}
}

func TestExtension_MergeAddsTime(t *testing.T) {
	parent := activeCaucus()
	passed := true
	out, err := NewExtension(parent, ExtensionRequest{
		ProposingCountry: "Germany", AdditionalMinutes: 5, SpeakingSeconds: 60, Passed: &passed,
	}, now)
	if err != nil {
		t.Fatalf("NewExtension: %v", err)
	}
	if !out.Merges || out.Motion.Status != models.StatusPassed {
		t.Fatalf("expected a passed extension to merge, got %+v", out)
	}
	if out.Motion.ParentMotionID() != 7 {
		t.Errorf("expected parent 7, got %d", out.Motion.ParentMotionID())
	}

	merged, err := MergeExtension(parent, out.Motion)
	if err != nil {
		t.Fatalf("MergeExtension: %v", err)
	}
	if merged.Duration != 15 || merged.TotalTime != 900 || merged.TotalSpeakers != 15 || merged.SpeakingTime != 60 {
		t.Errorf("unexpected merge %+v", merged)
	}
	if merged.Status != models.StatusInProgress {
		t.Errorf("parent should stay in progress, got %s", merged.Status)
	}
}

func TestExtension_ZeroSpeakingTimeKeepsParents(t *testing.T) {
	parent := activeCaucus()
	out, err := NewExtension(parent, ExtensionRequest{ProposingCountry: "Chile", AdditionalSeconds: 120}, now)
	if err != nil {
		t.Fatalf("NewExtension: %v", err)
	}
	if out.Motion.Status != models.StatusPending {
		t.Fatalf("no ruling should leave the extension pending, got %s", out.Motion.Status)
	}
	voted, err := RecordVote(out.Motion, 9, 1, 0)
	if err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	merged, err := MergeExtension(parent, voted.Motion)
	if err != nil {
		t.Fatalf("MergeExtension: %v", err)
	}
	if merged.SpeakingTime != 60 || merged.TotalSpeakers != 12 {
		t.Errorf("unexpected merge %+v", merged)
	}
}

func TestExtension_FailedRuling(t *testing.T) {
	failed := false
	out, err := NewExtension(activeCaucus(), ExtensionRequest{ProposingCountry: "Peru", AdditionalMinutes: 1, Passed: &failed}, now)
	if err != nil {
		t.Fatalf("NewExtension: %v", err)
	}
	if out.Merges || out.Motion.Status != models.StatusFailed {
		t.Errorf("expected failed extension, got %+v", out)
	}
}

func TestExtension_Rejections(t *testing.T) {
	pending := activeCaucus()
	pending.Status = models.StatusPending
	unmod := activeCaucus()
	unmod.Type = models.MotionUnmoderatedCaucus

	tests := []struct {
		name   string
		parent models.Motion
		req    ExtensionRequest
		want   errors.Kind
	}{
		{"parent not in progress", pending, ExtensionRequest{ProposingCountry: "Peru", AdditionalMinutes: 1}, errors.ErrPolicy},
		{"parent untimed", unmod, ExtensionRequest{ProposingCountry: "Peru", AdditionalMinutes: 1}, errors.ErrPolicy},
		{"no proposer", activeCaucus(), ExtensionRequest{AdditionalMinutes: 1}, errors.ErrValidation},
		{"no time", activeCaucus(), ExtensionRequest{ProposingCountry: "Peru"}, errors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExtension(tt.parent, tt.req, now); !errors.Is(err, tt.want) {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}

	other := models.Motion{ID: 99, Type: models.MotionExtension, Extension: &models.ExtensionDetails{ParentMotionID: 3}}
	if _, err := MergeExtension(activeCaucus(), other); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error for foreign extension, got %v", err)
	}
}

func TestAdjourn(t *testing.T) {
	m, err := Adjourn(activeCaucus())
	if err != nil {
		t.Fatalf("Adjourn: %v", err)
	}
	if m.Status != models.StatusPassed {
		t.Errorf("expected Passed, got %s", m.Status)
	}
	if _, err := Adjourn(m); !errors.Is(err, errors.ErrPolicy) {
		t.Errorf("expected policy error adjourning twice, got %v", err)
	}
	if _, err := Adjourn(models.Motion{Type: models.MotionCustom, Status: models.StatusInProgress}); !errors.Is(err, errors.ErrPolicy) {
		t.Errorf("expected policy error for untimed motion, got %v", err)
	}
}

func TestRenameAndReorder(t *testing.T) {
	m, err := Rename(activeCaucus(), " Mod on tariffs ")
	if err != nil || m.Name != "Mod on tariffs" {
		t.Fatalf("Rename = %q, %v", m.Name, err)
	}
	if m.Status != models.StatusInProgress || m.TotalTime != 600 {
		t.Error("rename must not touch status or timing")
	}
	if _, err := Rename(m, ""); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	motions := []models.Motion{{ID: 1}, {ID: 2}, {ID: 3}}
	got, err := Reorder(motions, []int64{3, 1, 2})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	for i, want := range []int64{3, 1, 2} {
		if got[i].ID != want || got[i].DisplayOrder != i {
			t.Errorf("position %d: got id %d order %d", i, got[i].ID, got[i].DisplayOrder)
		}
	}
	if _, err := Reorder(motions, []int64{1, 1, 2}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSetSpeakingTime(t *testing.T) {
	m, err := SetSpeakingTime(activeCaucus(), 40)
	if err != nil {
		t.Fatalf("SetSpeakingTime: %v", err)
	}
	if m.SpeakingTime != 40 || m.TotalSpeakers != 15 {
		t.Errorf("expected 40s and 15 speakers, got %ds and %d", m.SpeakingTime, m.TotalSpeakers)
	}

	gsl := models.Motion{Type: models.MotionGSL, Status: models.StatusInProgress, SpeakingTime: 60, TotalTime: 300, TotalSpeakers: 5}
	gsl, err = SetSpeakingTime(gsl, 90)
	if err != nil {
		t.Fatalf("SetSpeakingTime: %v", err)
	}
	if gsl.TotalSpeakers != 3 {
		t.Errorf("expected GSL speakers derived from total time, got %d", gsl.TotalSpeakers)
	}

	if _, err := SetSpeakingTime(models.Motion{Type: models.MotionCloseDebate}, 30); !errors.Is(err, errors.ErrPolicy) {
		t.Errorf("expected policy error for untimed motion, got %v", err)
	}
	if _, err := SetSpeakingTime(activeCaucus(), 0); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
