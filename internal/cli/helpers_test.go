package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lu-zhengda/appsweep/internal/config"
	"github.com/lu-zhengda/appsweep/internal/identity"
	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/process"
)

// captureOutput redirects stdout via os.Pipe and returns whatever was written.
func captureOutput(fn func()) string {
	return capture(&os.Stdout, fn)
}

// captureStderr is captureOutput for stderr.
func captureStderr(fn func()) string {
	return capture(&os.Stderr, fn)
}

func capture(target **os.File, fn func()) string {
	orig := *target
	r, w, _ := os.Pipe()
	*target = w

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	fn()

	w.Close()
	*target = orig
	return <-done
}

type fakeProc struct {
	running bool
	quits   []string
}

func (f *fakeProc) IsRunning(_ context.Context, _ string) bool { return f.running }

func (f *fakeProc) RequestQuit(_ context.Context, name string) error {
	f.quits = append(f.quits, name)
	return nil
}

type noIDs struct{}

func (noIDs) ReadKey(context.Context, string, string) (string, error) {
	return "", errors.New("no key")
}

// bundleIDs answers by the bundle directory name, e.g. "Foo.app".
type bundleIDs map[string]string

func (b bundleIDs) ReadKey(_ context.Context, plistPath, _ string) (string, error) {
	if id, ok := b[filepath.Base(filepath.Dir(filepath.Dir(plistPath)))]; ok {
		return id, nil
	}
	return "", errors.New("no key")
}

type env struct {
	system  string
	user    string
	library string
	history string
	proc    *fakeProc
}

// setupEnv points every CLI collaborator at a temp tree and restores the
// globals when the test ends.
func setupEnv(t *testing.T) *env {
	t.Helper()
	base := t.TempDir()
	e := &env{
		system:  filepath.Join(base, "Applications"),
		user:    filepath.Join(base, "home", "Applications"),
		library: filepath.Join(base, "home", "Library"),
		history: filepath.Join(base, "history.json"),
		proc:    &fakeProc{},
	}
	for _, dir := range []string{e.system, e.user, e.library} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Roots = config.RootsConfig{System: e.system, User: e.user}
	cfg.Library = e.library
	cfg.GracePeriod = "0s"

	saved := struct {
		cfg                       *config.Config
		yolo, json                bool
		listMin                   string
		removeYes, removeDry      bool
		orphansRemove, orphansYes bool
		ctrl                      func() process.Controller
		reader                    func() identity.Reader
		hist                      func() string
		in                        io.Reader
		inTTY, errTTY             func() bool
	}{appConfig, yoloMode, jsonFlag, listMinSize, removeYes, removeDryRun, orphansRemove, orphansYes,
		newController, newReader, historyPath, stdin, stdinIsTerminal, stderrIsTerminal}

	appConfig = cfg
	logger = logging.Discard()
	yoloMode, jsonFlag = false, false
	listMinSize = ""
	removeYes, removeDryRun = false, false
	orphansRemove, orphansYes = false, false
	newController = func() process.Controller { return e.proc }
	newReader = func() identity.Reader { return noIDs{} }
	historyPath = func() string { return e.history }
	stdin = strings.NewReader("")
	stdinIsTerminal = func() bool { return true }
	stderrIsTerminal = func() bool { return false }

	t.Cleanup(func() {
		appConfig, yoloMode, jsonFlag = saved.cfg, saved.yolo, saved.json
		listMinSize = saved.listMin
		removeYes, removeDryRun = saved.removeYes, saved.removeDry
		orphansRemove, orphansYes = saved.orphansRemove, saved.orphansYes
		newController, newReader, historyPath = saved.ctrl, saved.reader, saved.hist
		stdin, stdinIsTerminal, stderrIsTerminal = saved.in, saved.inTTY, saved.errTTY
	})
	return e
}

// bundle creates root/<name>.app holding size bytes.
func (e *env) bundle(t *testing.T, root, name string, size int) string {
	t.Helper()
	path := filepath.Join(root, name+".app")
	writeSized(t, filepath.Join(path, "Contents", "MacOS", "bin"), size)
	return path
}

// residual creates Library/<dir>/<name> holding size bytes.
func (e *env) residual(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(e.library, dir, name)
	writeSized(t, filepath.Join(path, "data"), size)
	return path
}

func writeSized(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
