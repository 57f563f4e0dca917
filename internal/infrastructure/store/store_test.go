package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

func sampleRecord(id string, updated time.Time) ports.SessionRecord {
	return ports.SessionRecord{
		ID:       id,
		FlowName: "onboarding",
		FlowPath: "/flows/onboarding.yaml",
		Snapshot: wizard.Snapshot{
			Version:       wizard.SnapshotVersion,
			CurrentStepID: "owners",
			FormData:      map[string]any{"entityType": "LLC", "owners": []any{map[string]any{"name": "Ada"}}},
			Visited:       []string{"business", "owners"},
			StepStatus:    map[string]wizard.StepStatus{"business": wizard.StatusValid},
			Phase:         wizard.PhaseAtStep,
			SavedAt:       updated,
		},
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
	}
}

func storeFactories() map[string]func(t *testing.T) ports.SnapshotStore {
	return map[string]func(t *testing.T) ports.SnapshotStore{
		"file": func(t *testing.T) ports.SnapshotStore {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "state", "sessions.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) ports.SnapshotStore {
			s, err := OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestSnapshotStores(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)

			first := sampleRecord("s-1", base)
			second := sampleRecord("s-2", base.Add(time.Minute))
			require.NoError(t, s.Save(ctx, first))
			require.NoError(t, s.Save(ctx, second))

			loaded, err := s.Load(ctx, "s-1")
			require.NoError(t, err)
			if diff := cmp.Diff(first, *loaded); diff != "" {
				t.Fatalf("record mismatch (-want +got):\n%s", diff)
			}

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "s-2", list[0].ID)

			first.Snapshot.CurrentStepID = "review"
			first.UpdatedAt = base.Add(2 * time.Minute)
			require.NoError(t, s.Save(ctx, first))
			loaded, err = s.Load(ctx, "s-1")
			require.NoError(t, err)
			assert.Equal(t, "review", loaded.Snapshot.CurrentStepID)

			list, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, "s-1", list[0].ID)

			require.NoError(t, s.Delete(ctx, "s-1"))
			_, err = s.Load(ctx, "s-1")
			assert.True(t, wizard.IsCode(err, wizard.ErrCodeNotFound))
			assert.True(t, wizard.IsCode(s.Delete(ctx, "s-1"), wizard.ErrCodeNotFound))
		})
	}
}

func TestFileStoreReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	record := sampleRecord("s-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, record))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	loaded, err := reopened.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, record.Snapshot.Visited, loaded.Snapshot.Visited)
	assert.Equal(t, "LLC", loaded.Snapshot.FormData["entityType"])
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestStoresRejectEmptyID(t *testing.T) {
	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			err := factory(t).Save(context.Background(), ports.SessionRecord{})
			assert.True(t, wizard.IsCode(err, wizard.ErrCodeInternal))
		})
	}
}
