package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	value string
	err   error
	calls []string
}

func (f *fakeReader) ReadKey(_ context.Context, plistPath, key string) (string, error) {
	f.calls = append(f.calls, plistPath+"|"+key)
	return f.value, f.err
}

func makeBundle(t *testing.T, withPlist bool) string {
	t.Helper()
	bundle := filepath.Join(t.TempDir(), "Foo.app")
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "Contents"), 0o755))
	if withPlist {
		require.NoError(t, os.WriteFile(filepath.Join(bundle, InfoPlist), []byte("<plist/>"), 0o644))
	}
	return bundle
}

func TestBundleID_TrimsValue(t *testing.T) {
	bundle := makeBundle(t, true)
	reader := &fakeReader{value: "  com.example.foo\n"}
	r := NewResolver(reader, logging.Discard())

	id, ok := r.BundleID(context.Background(), bundle)
	require.True(t, ok)
	assert.Equal(t, "com.example.foo", id)
	require.Len(t, reader.calls, 1)
	assert.Equal(t, filepath.Join(bundle, InfoPlist)+"|"+BundleIDKey, reader.calls[0])
}

func TestBundleID_MissingPlistSkipsReader(t *testing.T) {
	bundle := makeBundle(t, false)
	reader := &fakeReader{value: "com.example.foo"}
	r := NewResolver(reader, logging.Discard())

	_, ok := r.BundleID(context.Background(), bundle)
	assert.False(t, ok)
	assert.Empty(t, reader.calls)
}

func TestBundleID_ReaderFailure(t *testing.T) {
	bundle := makeBundle(t, true)
	r := NewResolver(&fakeReader{err: errors.New("exit status 1")}, logging.Discard())

	_, ok := r.BundleID(context.Background(), bundle)
	assert.False(t, ok)
}

func TestBundleID_BlankValue(t *testing.T) {
	bundle := makeBundle(t, true)
	r := NewResolver(&fakeReader{value: " \n"}, logging.Discard())

	_, ok := r.BundleID(context.Background(), bundle)
	assert.False(t, ok)
}
