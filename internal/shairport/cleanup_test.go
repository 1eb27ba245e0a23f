package shairport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServices struct {
	stopped []string
	stopErr error
	user    string
}

func (f *fakeServices) StopUnit(_ context.Context, unit string) error {
	f.stopped = append(f.stopped, unit)
	return f.stopErr
}

func (f *fakeServices) UnitUser(context.Context, string) string { return f.user }

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0755))
}

func TestInvalidate_RemovesStateDirs(t *testing.T) {
	root := t.TempDir()
	dirs := []string{
		filepath.Join(root, "var", "lib", "shairport-sync"),
		filepath.Join(root, "var", "cache", "shairport-sync"),
	}
	mkdirAll(t, dirs[0])
	require.NoError(t, os.WriteFile(filepath.Join(dirs[0], "pairing.bin"), []byte("x"), 0644))

	services := &fakeServices{}
	cleaner := &CacheCleaner{Services: services, StateDirs: dirs, HomeRoot: filepath.Join(root, "home")}

	cleaner.Invalidate(context.Background())

	assert.Equal(t, []string{ServiceUnit}, services.stopped)
	_, err := os.Stat(dirs[0])
	assert.True(t, os.IsNotExist(err))
}

func TestInvalidate_RemovesPerUserCaches(t *testing.T) {
	root := t.TempDir()
	home := filepath.Join(root, "home", "shairport")
	userCache := filepath.Join(home, ".config", "shairport-sync")
	keep := filepath.Join(home, ".config", "other-app")
	mkdirAll(t, userCache)
	mkdirAll(t, keep)

	cleaner := &CacheCleaner{
		Services: &fakeServices{user: "shairport"},
		HomeRoot: filepath.Join(root, "home"),
	}

	cleaner.Invalidate(context.Background())

	_, err := os.Stat(userCache)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(keep)
	assert.NoError(t, err, "unrelated directories must survive")
}

func TestInvalidate_StopFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cache")
	mkdirAll(t, dir)

	cleaner := &CacheCleaner{
		Services:  &fakeServices{stopErr: errors.New("unit not loaded")},
		StateDirs: []string{dir},
		HomeRoot:  filepath.Join(root, "home"),
	}

	cleaner.Invalidate(context.Background())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "cleanup must proceed past a stop failure")
}

func TestInvalidate_NilServicesSkipsUserLookup(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cache")
	mkdirAll(t, dir)

	cleaner := &CacheCleaner{StateDirs: []string{dir}, HomeRoot: filepath.Join(root, "home")}
	cleaner.Invalidate(context.Background())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestInvalidate_MissingDirsAreIgnored(t *testing.T) {
	cleaner := &CacheCleaner{
		Services:  &fakeServices{},
		StateDirs: []string{filepath.Join(t.TempDir(), "never-created")},
		HomeRoot:  t.TempDir(),
	}
	assert.NotPanics(t, func() { cleaner.Invalidate(context.Background()) })
}
