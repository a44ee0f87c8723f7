package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

type fakeSurface struct {
	calls []string
	fail  error
}

func (f *fakeSurface) record(format string, args ...interface{}) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.fail
}

func (f *fakeSurface) GracefulStop(ctx context.Context, kind models.Kind, id int) error {
	return f.record("graceful-stop %s %d", kind, id)
}

func (f *fakeSurface) ForceStop(ctx context.Context, kind models.Kind, id int) error {
	return f.record("force-stop %s %d", kind, id)
}

func (f *fakeSurface) Hibernate(ctx context.Context, id int) error {
	return f.record("hibernate vm %d", id)
}

func newTestExecutor(surface *fakeSurface, cfg Config) (*Executor, *int, *[]time.Duration) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	e := New(surface, cfg, logger)
	syncs := 0
	var sleeps []time.Duration
	e.sync = func() { syncs++ }
	e.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return e, &syncs, &sleeps
}

func TestApplyDispatch(t *testing.T) {
	cases := []struct {
		name  string
		entry models.PlanEntry
		want  string
	}{
		{"vm shutdown", models.PlanEntry{Kind: models.KindVM, ID: 200, Action: models.ActionShutdown}, "graceful-stop vm 200"},
		{"vm hibernate", models.PlanEntry{Kind: models.KindVM, ID: 300, Action: models.ActionHibernate}, "hibernate vm 300"},
		{"vm stop", models.PlanEntry{Kind: models.KindVM, ID: 400, Action: models.ActionStop}, "force-stop vm 400"},
		{"ct shutdown", models.PlanEntry{Kind: models.KindContainer, ID: 101, Action: models.ActionShutdown}, "graceful-stop ct 101"},
		{"ct stop", models.PlanEntry{Kind: models.KindContainer, ID: 102, Action: models.ActionStop}, "force-stop ct 102"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			surface := &fakeSurface{}
			e, _, _ := newTestExecutor(surface, Config{})

			outcome := e.Apply(context.Background(), tc.entry)

			if !outcome.Attempted || !outcome.Succeeded {
				t.Errorf("outcome = %+v, want attempted and succeeded", outcome)
			}
			if diff := cmp.Diff([]string{tc.want}, surface.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyUnknownActionFallsBackToGraceful(t *testing.T) {
	surface := &fakeSurface{}
	e, _, _ := newTestExecutor(surface, Config{})

	// 容器不支持hibernate，应降级为优雅关机
	outcome := e.Apply(context.Background(), models.PlanEntry{
		Kind:   models.KindContainer,
		ID:     101,
		Action: models.ActionHibernate,
	})

	if !outcome.Succeeded {
		t.Errorf("outcome = %+v, want succeeded", outcome)
	}
	if diff := cmp.Diff([]string{"graceful-stop ct 101"}, surface.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTestModeNoSideEffects(t *testing.T) {
	surface := &fakeSurface{}
	e, syncs, sleeps := newTestExecutor(surface, Config{
		TestMode:        true,
		SyncAfterAction: true,
		ActionDelay:     5 * time.Second,
	})

	outcome := e.Apply(context.Background(), models.PlanEntry{Kind: models.KindVM, ID: 200, Action: models.ActionShutdown})

	if outcome.Attempted || !outcome.Succeeded {
		t.Errorf("outcome = %+v, want not attempted but succeeded", outcome)
	}
	if len(surface.calls) != 0 {
		t.Errorf("control surface reached in test mode: %v", surface.calls)
	}
	if *syncs != 0 {
		t.Errorf("sync called %d times in test mode, want 0", *syncs)
	}
	// 骨架相同但间隔为零
	if diff := cmp.Diff([]time.Duration{0}, *sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFailureIsAbsorbed(t *testing.T) {
	surface := &fakeSurface{fail: errors.New("guest agent timeout")}
	e, _, _ := newTestExecutor(surface, Config{})

	outcome := e.Apply(context.Background(), models.PlanEntry{Kind: models.KindVM, ID: 200, Action: models.ActionShutdown})

	if !outcome.Attempted || outcome.Succeeded || outcome.Err == nil {
		t.Errorf("outcome = %+v, want attempted, failed, error recorded", outcome)
	}
}

func TestApplySyncAndDelay(t *testing.T) {
	surface := &fakeSurface{}
	e, syncs, sleeps := newTestExecutor(surface, Config{
		SyncAfterAction: true,
		ActionDelay:     3 * time.Second,
	})

	e.Apply(context.Background(), models.PlanEntry{Kind: models.KindContainer, ID: 101, Action: models.ActionShutdown})

	if *syncs != 1 {
		t.Errorf("sync called %d times, want 1", *syncs)
	}
	if diff := cmp.Diff([]time.Duration{3 * time.Second}, *sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestForceStop(t *testing.T) {
	surface := &fakeSurface{}
	e, _, _ := newTestExecutor(surface, Config{})

	outcome := e.ForceStop(context.Background(), models.Workload{Kind: models.KindVM, ID: 200, Status: models.StatusRunning})

	if !outcome.Attempted || !outcome.Succeeded {
		t.Errorf("outcome = %+v, want attempted and succeeded", outcome)
	}
	if diff := cmp.Diff([]string{"force-stop vm 200"}, surface.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestForceStopTestMode(t *testing.T) {
	surface := &fakeSurface{}
	e, _, _ := newTestExecutor(surface, Config{TestMode: true})

	outcome := e.ForceStop(context.Background(), models.Workload{Kind: models.KindContainer, ID: 101})

	if outcome.Attempted || !outcome.Succeeded {
		t.Errorf("outcome = %+v, want not attempted but succeeded", outcome)
	}
	if len(surface.calls) != 0 {
		t.Errorf("control surface reached in test mode: %v", surface.calls)
	}
}
