package race

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stadtaev/racereplay/internal/database"
	"github.com/stadtaev/racereplay/internal/migrations"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

func TestImportAndLoadBundle(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	demo := DemoBundle()

	if err := store.ImportBundle(ctx, demo); err != nil {
		t.Fatalf("import: %v", err)
	}

	loaded, err := store.LoadBundle(ctx, "demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Metadata.Name != demo.Metadata.Name {
		t.Errorf("name = %q, want %q", loaded.Metadata.Name, demo.Metadata.Name)
	}
	if len(loaded.Positions) != len(demo.Positions) {
		t.Errorf("frames = %d, want %d", len(loaded.Positions), len(demo.Positions))
	}
	if len(loaded.Runners) != 3 || len(loaded.Geofences) != 4 || len(loaded.Scoring) != 3 {
		t.Errorf("runners/geofences/scoring = %d/%d/%d, want 3/4/3",
			len(loaded.Runners), len(loaded.Geofences), len(loaded.Scoring))
	}

	// Frames must come back in time order with their positions intact.
	for i := 1; i < len(loaded.Positions); i++ {
		if loaded.Positions[i].T < loaded.Positions[i-1].T {
			t.Fatalf("frame %d out of order: %v < %v", i, loaded.Positions[i].T, loaded.Positions[i-1].T)
		}
	}

	// Optional scoring fields survive the round trip.
	var r3 *Scoring
	for i := range loaded.Scoring {
		if loaded.Scoring[i].Runner == 3 {
			r3 = &loaded.Scoring[i]
		}
	}
	if r3 == nil {
		t.Fatal("runner 3 scoring missing")
	}
	if r3.EnterFinishTime != nil {
		t.Error("runner 3 should have no finish time")
	}
	if w := r3.Stages["2"]; w.Enter == nil || w.Exit != nil {
		t.Errorf("runner 3 stage 2 window = %+v, want open (enter only)", w)
	}
}

func TestImportReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	if err := store.ImportBundle(ctx, DemoBundle()); err != nil {
		t.Fatalf("first import: %v", err)
	}

	smaller := DemoBundle()
	smaller.Runners = smaller.Runners[:2]
	smaller.Scoring = smaller.Scoring[:2]
	if err := store.ImportBundle(ctx, smaller); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	loaded, err := store.LoadBundle(ctx, "demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Runners) != 2 {
		t.Errorf("runners after re-import = %d, want 2", len(loaded.Runners))
	}
}

func TestImportRejectsInvalidBundle(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	b := DemoBundle()
	b.Metadata.EndTime = b.Metadata.StartTime
	if err := store.ImportBundle(ctx, b); err == nil {
		t.Fatal("expected error for empty race window")
	}

	b = DemoBundle()
	b.Positions = nil
	if err := store.ImportBundle(ctx, b); err == nil {
		t.Fatal("expected error for bundle without frames")
	}
}

func TestLoadMissingRace(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	if _, err := store.LoadBundle(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := store.GetRace(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRace(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	if err := store.ImportBundle(ctx, DemoBundle()); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := store.DeleteRace(ctx, "demo"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.LoadBundle(ctx, "demo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}
	if err := store.DeleteRace(ctx, "demo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestSeedDemoIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	logger := slog.Default()

	if err := SeedDemo(ctx, logger, store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := SeedDemo(ctx, logger, store); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	races, err := store.ListRaces(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(races) != 1 {
		t.Errorf("races = %d, want 1", len(races))
	}
}

func TestScoringRecordsConversion(t *testing.T) {
	b := DemoBundle()
	records := b.ScoringRecords()

	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for _, rec := range records {
		if rec.Entity == 1 {
			if len(rec.Stages) != 2 {
				t.Errorf("runner 1 stages = %d, want 2 (string keys parsed)", len(rec.Stages))
			}
			if rec.Stages[1].Enter == nil {
				t.Error("runner 1 stage 1 enter missing after conversion")
			}
		}
	}
}
