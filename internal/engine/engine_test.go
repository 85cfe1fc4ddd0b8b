package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/identity"
	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/residual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idReader answers by the bundle directory name found in the plist path.
type idReader map[string]string

func (r idReader) ReadKey(_ context.Context, plistPath, _ string) (string, error) {
	bundle := filepath.Base(filepath.Dir(filepath.Dir(plistPath)))
	if id, ok := r[bundle]; ok {
		return id, nil
	}
	return "", errors.New("key not found")
}

type fixture struct {
	system  string
	user    string
	library string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := t.TempDir()
	f := fixture{
		system:  filepath.Join(base, "Applications"),
		user:    filepath.Join(base, "home", "Applications"),
		library: filepath.Join(base, "home", "Library"),
	}
	require.NoError(t, os.MkdirAll(f.system, 0o755))
	require.NoError(t, os.MkdirAll(f.user, 0o755))
	return f
}

func (f fixture) bundle(t *testing.T, root, name string, size int) string {
	t.Helper()
	bundle := filepath.Join(root, name+".app")
	contents := filepath.Join(bundle, "Contents")
	require.NoError(t, os.MkdirAll(contents, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(contents, "Info.plist"), make([]byte, size), 0o644))
	return bundle
}

func (f fixture) residual(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(f.library, dir, name)
	require.NoError(t, os.MkdirAll(p, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p, "data"), make([]byte, size), 0o644))
	return p
}

func (f fixture) engine(ids idReader) *Engine {
	log := logging.Discard()
	return New(
		catalog.New(f.system, f.user, log),
		identity.NewResolver(ids, log),
		residual.NewFinder(f.library, log),
		log,
	)
}

func TestInspect_BundleAndResidualTotal(t *testing.T) {
	f := newFixture(t)
	bundle := f.bundle(t, f.system, "Foo", 50)
	cache := f.residual(t, "Caches", "Foo", 30)

	plan, err := f.engine(nil).Inspect(context.Background(), "Foo")
	require.NoError(t, err)

	assert.Equal(t, "Foo", plan.App.Name)
	assert.Equal(t, bundle, plan.App.Path)
	assert.Equal(t, int64(50), plan.App.Size)
	assert.Empty(t, plan.App.BundleID)
	assert.Equal(t, []Entry{{Path: cache, Size: 30}}, plan.Residuals)
	assert.Equal(t, int64(80), plan.Total)

	req := plan.Request()
	assert.Equal(t, bundle, req.BundlePath)
	assert.Equal(t, []string{cache}, req.Residuals)
	assert.Equal(t, "Foo", req.AppName)
}

func TestInspect_IdentifierOnlyPlist(t *testing.T) {
	f := newFixture(t)
	f.bundle(t, f.user, "Foo", 10)
	require.NoError(t, os.MkdirAll(filepath.Join(f.library, "Preferences"), 0o755))
	plist := filepath.Join(f.library, "Preferences", "com.example.foo.plist")
	require.NoError(t, os.WriteFile(plist, make([]byte, 5), 0o644))

	plan, err := f.engine(idReader{"Foo.app": "com.example.foo"}).Inspect(context.Background(), "foo")
	require.NoError(t, err)

	assert.Equal(t, "com.example.foo", plan.App.BundleID)
	assert.Equal(t, []string{plist}, plan.ResidualPaths())
	assert.Equal(t, int64(15), plan.Total)
}

func TestInspect_NotFound(t *testing.T) {
	f := newFixture(t)
	f.bundle(t, f.system, "Foo", 1)

	_, err := f.engine(nil).Inspect(context.Background(), "Bar")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
	assert.Contains(t, err.Error(), "Bar")
}

func TestInspect_ExcludeFunc(t *testing.T) {
	f := newFixture(t)
	f.bundle(t, f.system, "Foo", 50)
	cache := f.residual(t, "Caches", "Foo", 30)
	logs := f.residual(t, "Logs", "Foo", 20)

	e := f.engine(nil)
	e.SetExcludeFunc(func(p string) bool { return strings.Contains(p, "/Logs/") })

	plan, err := e.Inspect(context.Background(), "Foo")
	require.NoError(t, err)
	assert.Equal(t, []string{cache}, plan.ResidualPaths())
	assert.Equal(t, []string{logs}, plan.Excluded)
	assert.Equal(t, int64(80), plan.Total)
}

func TestInspect_ResidualsSorted(t *testing.T) {
	f := newFixture(t)
	f.bundle(t, f.system, "Foo", 1)
	logs := f.residual(t, "Logs", "Foo", 1)
	support := f.residual(t, "Application Support", "Foo", 1)
	cache := f.residual(t, "Caches", "com.Foo.helper", 1)

	plan, err := f.engine(nil).Inspect(context.Background(), "Foo")
	require.NoError(t, err)
	assert.Equal(t, []string{support, cache, logs}, plan.ResidualPaths())
}

func TestDescribe(t *testing.T) {
	f := newFixture(t)
	f.bundle(t, f.system, "Alpha", 100)
	f.bundle(t, f.user, "Beta", 200)

	e := f.engine(idReader{"Beta.app": "com.example.beta"})
	e.SetConcurrency(2)
	apps := e.Catalog().List()
	require.Len(t, apps, 2)

	var (
		mu    sync.Mutex
		calls []DescribeProgress
	)
	described := e.Describe(context.Background(), apps, func(p DescribeProgress) {
		mu.Lock()
		calls = append(calls, p)
		mu.Unlock()
	})

	require.Len(t, described, 2)
	assert.Equal(t, "Alpha", described[0].Name)
	assert.Equal(t, int64(100), described[0].Size)
	assert.Empty(t, described[0].BundleID)
	assert.Equal(t, "Beta", described[1].Name)
	assert.Equal(t, int64(200), described[1].Size)
	assert.Equal(t, "com.example.beta", described[1].BundleID)

	assert.Zero(t, apps[0].Size, "input slice is not modified")
	require.Len(t, calls, 2)
	assert.Equal(t, 2, calls[1].Done)
	assert.Equal(t, 2, calls[1].Total)
}

func TestIdentify_FillsOnlyBundleID(t *testing.T) {
	f := newFixture(t)
	f.bundle(t, f.system, "Google Chrome", 100)
	f.bundle(t, f.system, "Plain", 50)

	e := f.engine(idReader{"Google Chrome.app": "com.google.Chrome"})
	identified := e.Identify(context.Background(), e.Catalog().List())

	require.Len(t, identified, 2)
	assert.Equal(t, "com.google.Chrome", identified[0].BundleID)
	assert.Zero(t, identified[0].Size)
	assert.Empty(t, identified[1].BundleID)
}

func TestDescribe_Empty(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.engine(nil).Describe(context.Background(), nil, nil))
}
