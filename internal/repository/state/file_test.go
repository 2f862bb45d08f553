package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns the same records.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "state.json")
	repo := NewFileRepository(file)

	seq := domain.NewSequence(uuid.New())
	ts := time.Now().UTC().Truncate(time.Second)
	want := &Snapshot{
		SavedAt: ts,
		Records: []domain.EventRecord{
			{
				EventID:      seq.Next(),
				Identity:     "boiler/temperature",
				Source:       "boiler",
				Name:         "temperature",
				Category:     domain.CategoryExclusiveLimit,
				Capabilities: domain.Capabilities{Acknowledge: true, Branching: true},
				Active:       true,
				Severity:     600,
				Value:        domain.Number(93),
				Band:         domain.BandHigh,
				Retain:       true,
				Actor: &domain.Actor{
					Hostname: "Oleg Shokin",
					Username: "o.shokin",
				},
			},
			{
				EventID:      seq.Next(),
				BranchID:     seq.Next(),
				Identity:     "boiler/temperature",
				Source:       "boiler",
				Name:         "temperature",
				Category:     domain.CategoryExclusiveLimit,
				Capabilities: domain.Capabilities{Acknowledge: true, Branching: true},
				Severity:     domain.SeverityInactive,
				Value:        domain.Number(50),
				Retain:       true,
			},
		},
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.True(t, want.SavedAt.Equal(got.SavedAt))
	require.Equal(t, want.Records, got.Records)

	info, err := os.Stat(file)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(file))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestFileRepository_EmptySnapshot stores and loads an empty retained set.
func TestFileRepository_EmptySnapshot(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))

	require.NoError(t, repo.Save(context.Background(), new(Snapshot)))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, got.Records)
	require.True(t, got.SavedAt.IsZero())
}

// TestFileRepository_Corrupt reports undecodable files.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
