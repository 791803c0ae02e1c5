package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLockStore struct {
	values map[string]string
}

func (m *memLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memLockStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.values[key] != owner {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memLockStore) LockKey(name string) string { return "asm:lock:" + name }

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memLockStore{values: map[string]string{}}
	ctx := context.Background()
	first, err := NewRedisLock(store, "cron-worker:dev", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron-worker:dev", time.Minute)
	require.NoError(t, err)

	won, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)
	assert.True(t, strings.HasPrefix(store.values["asm:lock:cron-worker:dev"], first.host+"/"))

	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "asm:lock:cron-worker:dev", "a loser must not drop the holder's key")

	require.NoError(t, first.Release(ctx))
	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestRedisLockLeavesReclaimedKeyAlone(t *testing.T) {
	store := &memLockStore{values: map[string]string{}}
	ctx := context.Background()
	lock, err := NewRedisLock(store, "cron-worker:dev", time.Minute)
	require.NoError(t, err)

	won, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)

	// the TTL lapsed and another worker took over
	store.values["asm:lock:cron-worker:dev"] = "other-host/token"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "other-host/token", store.values["asm:lock:cron-worker:dev"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "cron-worker", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(&memLockStore{}, "", time.Minute)
	assert.Error(t, err)

	lock, err := NewRedisLock(&memLockStore{}, "cron-worker", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}
