package lock

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "job:process-auto-pilot", ScopeKey("process-auto-pilot", 0))
	assert.Equal(t, "job:process-auto-pilot:42", ScopeKey("process-auto-pilot", 42))
}

func TestTTLFor(t *testing.T) {
	// Short deadlines still get the generous floor.
	assert.Equal(t, MinTTL, TTLFor(10*time.Second))
	assert.Equal(t, MinTTL, TTLFor(20*time.Minute))

	// Long deadlines get one hour of slack past the deadline.
	assert.Equal(t, 13*time.Hour, TTLFor(12*time.Hour))
}

func TestGuard_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	g := NewGuard(dir, "alice@laptop/100")
	scope := ScopeKey("process-auto-pilot", 0)

	require.NoError(t, g.Acquire(scope, MinTTL))

	holder, err := g.Holder(scope)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, "alice@laptop/100", holder.Owner)
	assert.Equal(t, scope, holder.Scope)

	require.NoError(t, g.Release(scope))

	holder, err = g.Holder(scope)
	require.NoError(t, err)
	assert.Nil(t, holder)
}

func TestGuard_SecondHolderIsBusy(t *testing.T) {
	dir := t.TempDir()
	scope := ScopeKey("process-auto-pilot", 0)

	first := NewGuard(dir, "alice@laptop/100")
	require.NoError(t, first.Acquire(scope, MinTTL))

	second := NewGuard(dir, "bob@server/200")
	err := second.Acquire(scope, MinTTL)
	require.Error(t, err)

	var busy *BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, scope, busy.Scope)
	assert.Equal(t, "alice@laptop/100", busy.Owner)
}

func TestGuard_ReacquireRefreshesOwnLock(t *testing.T) {
	dir := t.TempDir()
	g := NewGuard(dir, "alice@laptop/100")
	scope := ScopeKey("process-auto-pilot", 0)

	require.NoError(t, g.Acquire(scope, MinTTL))
	require.NoError(t, g.Acquire(scope, MinTTL))

	holder, err := g.Holder(scope)
	require.NoError(t, err)
	require.NotNil(t, holder)
}

func TestGuard_ExpiredLockIsClaimable(t *testing.T) {
	dir := t.TempDir()
	scope := ScopeKey("process-auto-pilot", 0)

	stale := NewGuard(dir, "crashed@host/1")
	require.NoError(t, stale.Acquire(scope, MinTTL))

	// Backdate the lock past its TTL.
	path := stale.lockPath(scope)
	l, err := stale.readLock(scope)
	require.NoError(t, err)
	l.Acquired = time.Now().UTC().Add(-MinTTL - time.Minute)
	require.NoError(t, stale.writeLock(scope, l))
	_, err = os.Stat(path)
	require.NoError(t, err)

	next := NewGuard(dir, "alice@laptop/100")
	require.NoError(t, next.Acquire(scope, MinTTL))

	holder, err := next.Holder(scope)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, "alice@laptop/100", holder.Owner)
}

func TestGuard_ReleaseForeignLockFails(t *testing.T) {
	dir := t.TempDir()
	scope := ScopeKey("process-auto-pilot", 0)

	first := NewGuard(dir, "alice@laptop/100")
	require.NoError(t, first.Acquire(scope, MinTTL))

	second := NewGuard(dir, "bob@server/200")
	assert.Error(t, second.Release(scope))

	// The lock survives the failed release.
	holder, err := first.Holder(scope)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, "alice@laptop/100", holder.Owner)
}

func TestGuard_ReleaseUnheldIsNoOp(t *testing.T) {
	g := NewGuard(t.TempDir(), "alice@laptop/100")
	assert.NoError(t, g.Release(ScopeKey("process-auto-pilot", 0)))
}

func TestGuard_NarrowScopesAreIndependent(t *testing.T) {
	dir := t.TempDir()

	batch := NewGuard(dir, "cron@host/1")
	require.NoError(t, batch.Acquire(ScopeKey("process-auto-pilot", 0), MinTTL))

	single := NewGuard(dir, "alice@laptop/100")
	require.NoError(t, single.Acquire(ScopeKey("process-auto-pilot", 42), MinTTL))
}

// At most one of many concurrent acquirers may win a free scope.
func TestGuard_ConcurrentAcquire(t *testing.T) {
	dir := t.TempDir()
	scope := ScopeKey("process-auto-pilot", 0)
	g := NewGuard(dir, "alice@laptop/100")

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			errs <- g.Acquire(scope, MinTTL)
		}()
	}

	// Same guard, same owner: every acquire succeeds (refresh), and the
	// shared mutex keeps the file writes serialized.
	for i := 0; i < workers; i++ {
		assert.NoError(t, <-errs)
	}

	holder, err := g.Holder(scope)
	require.NoError(t, err)
	require.NotNil(t, holder)
}
