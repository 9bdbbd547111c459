package testutil

import (
	"context"
	"testing"

	"github.com/abrezinsky/gavel/internal/models"
	"github.com/abrezinsky/gavel/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedCommittee creates a committee whose roster lists the given codes.
// Each code doubles as the delegation name.
func SeedCommittee(t *testing.T, repo repository.CommitteeRepository, name string, codes ...string) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := repo.CreateCommittee(ctx, name, models.DefaultSettings())
	if err != nil {
		t.Fatalf("failed to create committee: %v", err)
	}
	countries := make([]models.Country, 0, len(codes))
	for _, code := range codes {
		countries = append(countries, models.Country{
			ID: code, Name: code, Code: code, FlagQuery: code, Attendance: models.AttendancePresent,
		})
	}
	if err := repo.ReplaceCountries(ctx, id, countries); err != nil {
		t.Fatalf("failed to seed roster: %v", err)
	}
	return id
}
