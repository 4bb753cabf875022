package dependency

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	noopCloser
	name      string
	available bool
	err       error
}

func (f *fakeDependency) Name() string { return f.name }
func (f *fakeDependency) IsDependencyAvailable(ctx context.Context) (bool, error) {
	return f.available, f.err
}

func TestAggregate_UnanimousAND(t *testing.T) {
	agg := NewAggregate("agg", &fakeDependency{name: "a", available: true}, &fakeDependency{name: "b", available: true})
	ok, err := agg.IsDependencyAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	agg2 := NewAggregate("agg", &fakeDependency{name: "a", available: true}, &fakeDependency{name: "b", available: false})
	ok, err = agg2.IsDependencyAvailable(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAggregate_PropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	agg := NewAggregate("agg", &fakeDependency{name: "a", available: true, err: boom})
	_, err := agg.IsDependencyAvailable(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDirectoryAvailable_MissingPathIsUnavailableNotError(t *testing.T) {
	d := NewDirectoryAvailable("dir", filepath.Join(t.TempDir(), "does-not-exist"))
	ok, err := d.IsDependencyAvailable(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirectoryAvailable_ExistingDirIsAvailable(t *testing.T) {
	d := NewDirectoryAvailable("dir", t.TempDir())
	ok, err := d.IsDependencyAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTagCache_RefreshesAfterTTLAndGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("unavailable")
	cache := NewTagCache(func(ctx context.Context, key string) (string, error) {
		calls++
		return "", boom
	})

	for i := 0; i < tagCacheMaxAttempts; i++ {
		_, err := cache.Get(context.Background(), "instance-id")
		require.Error(t, err)
	}
	assert.Equal(t, tagCacheMaxAttempts, calls)

	_, err := cache.Get(context.Background(), "instance-id")
	require.Error(t, err)
	assert.Equal(t, tagCacheMaxAttempts, calls, "no further fetch attempts once exhausted")
}

func TestTagCache_CachesSuccessfulValue(t *testing.T) {
	calls := 0
	cache := NewTagCache(func(ctx context.Context, key string) (string, error) {
		calls++
		return "value", nil
	})

	v1, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	v2, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "value", v1)
	assert.Equal(t, "value", v2)
	assert.Equal(t, 1, calls)
}
