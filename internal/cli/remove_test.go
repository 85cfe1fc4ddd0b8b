package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/engine"
	"github.com/lu-zhengda/appsweep/internal/history"
	"github.com/lu-zhengda/appsweep/internal/remover"
)

func TestRunRemove_Confirmed(t *testing.T) {
	e := setupEnv(t)
	bundle := e.bundle(t, e.system, "Foo", 50)
	cache := e.residual(t, "Caches", "Foo", 30)
	stdin = strings.NewReader("y\n")

	var err error
	out := captureOutput(func() { err = runRemove(context.Background(), "foo") })
	if err != nil {
		t.Fatalf("runRemove: %v", err)
	}

	for _, want := range []string{
		"Remove: Foo",
		"Total to remove: 80 B",
		"Removing " + bundle + "...",
		bundle + " - OK",
		cache + " - OK",
		`"Foo" removed successfully.`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if exists(bundle) || exists(cache) {
		t.Error("expected bundle and residual to be deleted")
	}

	entries, err := history.New(e.history).Load()
	if err != nil {
		t.Fatalf("history not recorded: %v", err)
	}
	if len(entries) != 1 || entries[0].App != "Foo" || entries[0].Items != 2 || entries[0].BytesFreed != 80 {
		t.Errorf("unexpected history: %+v", entries)
	}
}

func TestRunRemove_Declined(t *testing.T) {
	e := setupEnv(t)
	bundle := e.bundle(t, e.system, "Foo", 50)
	stdin = strings.NewReader("n\n")

	out := captureOutput(func() {
		if err := runRemove(context.Background(), "Foo"); err != nil {
			t.Errorf("runRemove: %v", err)
		}
	})
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("expected cancellation in:\n%s", out)
	}
	if !exists(bundle) {
		t.Error("bundle should not be deleted")
	}
}

func TestRunRemove_RunningAppDeclined(t *testing.T) {
	e := setupEnv(t)
	bundle := e.bundle(t, e.system, "Foo", 50)
	e.proc.running = true
	stdin = strings.NewReader("y\nn\n")

	out := captureOutput(func() {
		if err := runRemove(context.Background(), "Foo"); err != nil {
			t.Errorf("runRemove: %v", err)
		}
	})
	if !strings.Contains(out, "Quit the application before removing it.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if len(e.proc.quits) != 0 {
		t.Error("quit should not be requested")
	}
	if !exists(bundle) {
		t.Error("bundle should not be deleted")
	}
}

func TestRunRemove_RunningAppQuit(t *testing.T) {
	e := setupEnv(t)
	bundle := e.bundle(t, e.system, "Foo", 50)
	e.proc.running = true
	stdin = strings.NewReader("yes\ny\n")

	captureOutput(func() {
		if err := runRemove(context.Background(), "Foo"); err != nil {
			t.Errorf("runRemove: %v", err)
		}
	})
	if len(e.proc.quits) != 1 || e.proc.quits[0] != "Foo" {
		t.Errorf("expected one quit request for Foo, got %v", e.proc.quits)
	}
	if exists(bundle) {
		t.Error("bundle should be deleted")
	}
}

func TestRunRemove_NotFound(t *testing.T) {
	e := setupEnv(t)
	e.bundle(t, e.system, "Slack", 10)

	var err error
	stderr := captureStderr(func() { err = runRemove(context.Background(), "Slak") })
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(stderr, `Application "Slak" not found.`) {
		t.Errorf("unexpected stderr:\n%s", stderr)
	}
	if !strings.Contains(stderr, "Did you mean: Slack?") {
		t.Errorf("expected suggestion in stderr:\n%s", stderr)
	}
}

func TestRunRemove_DryRun(t *testing.T) {
	e := setupEnv(t)
	bundle := e.bundle(t, e.system, "Foo", 50)
	e.residual(t, "Logs", "Foo", 30)
	removeDryRun = true

	out := captureOutput(func() {
		if err := runRemove(context.Background(), "Foo"); err != nil {
			t.Errorf("runRemove: %v", err)
		}
	})
	if !strings.Contains(out, "[DRY RUN] Would remove 2 items (80 B).") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !exists(bundle) {
		t.Error("dry run must not delete")
	}
}

func TestRunRemove_NonInteractiveRefuses(t *testing.T) {
	e := setupEnv(t)
	bundle := e.bundle(t, e.system, "Foo", 50)
	stdinIsTerminal = func() bool { return false }

	var err error
	captureOutput(func() { err = runRemove(context.Background(), "Foo") })
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected --yes hint, got %v", err)
	}
	if !exists(bundle) {
		t.Error("bundle should not be deleted")
	}
}

func TestRunRemove_JSONWithYes(t *testing.T) {
	e := setupEnv(t)
	e.bundle(t, e.system, "Foo", 50)
	jsonFlag = true
	removeYes = true

	out := captureOutput(func() {
		if err := runRemove(context.Background(), "Foo"); err != nil {
			t.Errorf("runRemove: %v", err)
		}
	})

	var got removeJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.DryRun || got.Failed != 0 || len(got.Outcomes) != 1 || !got.Outcomes[0].OK {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestRunRemove_JSONNeedsYes(t *testing.T) {
	e := setupEnv(t)
	e.bundle(t, e.system, "Foo", 50)
	jsonFlag = true

	if err := runRemove(context.Background(), "Foo"); err == nil {
		t.Fatal("expected error when --json is used without --yes")
	}
}

func TestFreedBytes(t *testing.T) {
	plan := engine.Plan{
		App:       catalog.App{Name: "Foo", Path: "/A/Foo.app", Size: 50},
		Residuals: []engine.Entry{{Path: "/L/Caches/Foo", Size: 30}, {Path: "/L/Logs/Foo", Size: 20}},
	}
	report := remover.Report{Outcomes: []remover.Outcome{
		{Path: "/A/Foo.app", Err: errors.New("denied")},
		{Path: "/L/Caches/Foo"},
		{Path: "/L/Logs/Foo"},
	}}
	if got := freedBytes(plan, report); got != 50 {
		t.Errorf("freedBytes = %d, want 50", got)
	}
}

func TestRecordRemoval_Disabled(t *testing.T) {
	e := setupEnv(t)
	appConfig.History.Enabled = false

	recordRemoval(engine.Plan{App: catalog.App{Name: "Foo"}}, remover.Report{})
	if exists(e.history) {
		t.Error("history should not be written when disabled")
	}
}
