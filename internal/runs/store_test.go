package runs_test

import (
	"context"
	"errors"
	"testing"

	"amuza/internal/runs"
	"amuza/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	created, err := store.Create(ctx, runs.KindRunPlate, "A1,B1,C1", 90, 60)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create returned empty ID")
	}
	if created.Status != runs.StatusPending {
		t.Errorf("Status = %s, want pending", created.Status)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Kind != runs.KindRunPlate || got.Wells != "A1,B1,C1" {
		t.Errorf("GetByID = %+v", got)
	}
	if got.SamplingSeconds != 90 || got.BufferSeconds != 60 {
		t.Errorf("timing = %d/%d, want 90/60", got.SamplingSeconds, got.BufferSeconds)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not recorded")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	run, err := store.Create(ctx, runs.KindMove, "C5,A1,C5", 90, 60)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.MarkRunning(ctx, run.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != runs.StatusRunning || got.StartedAt.IsZero() {
		t.Errorf("after MarkRunning: status=%s started=%v", got.Status, got.StartedAt)
	}

	if err := store.MarkCompleted(ctx, run.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	got, err = store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != runs.StatusCompleted || got.FinishedAt.IsZero() {
		t.Errorf("after MarkCompleted: status=%s finished=%v", got.Status, got.FinishedAt)
	}
	if !got.Status.IsTerminal() {
		t.Error("completed should be terminal")
	}
}

func TestMarkFailedRecordsMessage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	run, err := store.Create(ctx, runs.KindRunPlate, "A1", 90, 60)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkFailed(ctx, run.ID, "no acknowledgment from collector"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != runs.StatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
	if got.ErrorMessage != "no acknowledgment from collector" {
		t.Errorf("ErrorMessage = %q", got.ErrorMessage)
	}
}

func TestMarkStoppedUsesStopReason(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	run, err := store.Create(ctx, runs.KindRunPlate, "A1,B1", 90, 60)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkStopped(ctx, run.ID); err != nil {
		t.Fatalf("MarkStopped: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != runs.StatusStopped || got.ErrorMessage != runs.StopReason {
		t.Errorf("after MarkStopped: %+v", got)
	}
}

func TestTransitionUnknownRun(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	err := store.MarkRunning(context.Background(), "no-such-run")
	if !errors.Is(err, runs.ErrNotFound) {
		t.Fatalf("MarkRunning error = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, wells := range []string{"A1", "B1", "C1"} {
		if _, err := store.Create(ctx, runs.KindRunPlate, wells, 90, 60); err != nil {
			t.Fatalf("Create(%s): %v", wells, err)
		}
	}

	listed, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("List returned %d runs, want 2", len(listed))
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d runs, want 3", len(all))
	}
}

func TestFailActive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	pending, err := store.Create(ctx, runs.KindRunPlate, "A1", 90, 60)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	running, err := store.Create(ctx, runs.KindMove, "B2", 90, 60)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkRunning(ctx, running.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	done, err := store.Create(ctx, runs.KindRunPlate, "C3", 90, 60)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkCompleted(ctx, done.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	n, err := store.FailActive(ctx, runs.ShutdownReason)
	if err != nil {
		t.Fatalf("FailActive: %v", err)
	}
	if n != 2 {
		t.Errorf("FailActive = %d, want 2", n)
	}

	for _, id := range []string{pending.ID, running.ID} {
		got, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status != runs.StatusFailed || got.ErrorMessage != runs.ShutdownReason {
			t.Errorf("run %s = %+v", id, got)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 3 || health.Failed != 2 || health.Completed != 1 {
		t.Errorf("Health = %+v", health)
	}
}
