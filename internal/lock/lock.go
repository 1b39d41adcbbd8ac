// Package lock provides scope-keyed mutual exclusion for autopilot runs.
//
// A scope is either the whole job ("job:process-auto-pilot") or a single
// applicant ("job:process-auto-pilot:42"). Lock files carry a generous TTL
// so a crashed process cannot wedge the next scheduled invocation, while a
// live process always releases via a deferred Release on every exit path.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// MinTTL is the floor for lock TTLs regardless of the configured deadline.
const MinTTL = 6 * time.Hour

// Lock represents run lock state persisted to disk.
type Lock struct {
	Scope    string    `yaml:"scope"`    // scope key this lock covers
	Owner    string    `yaml:"owner"`    // user@machine/pid identifier
	Acquired time.Time `yaml:"acquired"` // when the lock was acquired
	TTL      string    `yaml:"ttl"`      // time-to-live as duration string
	PID      int       `yaml:"pid"`      // process ID of lock holder
}

// TTLDuration parses the TTL string and returns a time.Duration.
func (l *Lock) TTLDuration() time.Duration {
	d, err := time.ParseDuration(l.TTL)
	if err != nil {
		return MinTTL
	}
	return d
}

// Expired returns true if the lock outlived its TTL.
func (l *Lock) Expired() bool {
	return time.Since(l.Acquired) > l.TTLDuration()
}

// BusyError reports that the scope is held by another run.
type BusyError struct {
	Scope string
	Owner string
	Since time.Time
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("scope %s is locked by %s since %s", e.Scope, e.Owner, e.Since.Format(time.RFC3339))
}

// ScopeKey builds the lock scope for a job run. applicantID zero means the
// whole job; a concrete id narrows exclusivity to that single applicant.
func ScopeKey(job string, applicantID int64) string {
	if applicantID > 0 {
		return fmt.Sprintf("job:%s:%d", job, applicantID)
	}
	return "job:" + job
}

// TTLFor derives the lock TTL from the run deadline: at least MinTTL, and
// always one hour past the deadline so a slow run never loses its lock.
func TTLFor(deadline time.Duration) time.Duration {
	ttl := deadline + time.Hour
	if ttl < MinTTL {
		return MinTTL
	}
	return ttl
}

// Guard acquires and releases scope locks backed by files in a directory.
type Guard struct {
	dir   string
	owner string
	mu    sync.Mutex
}

// NewGuard creates a Guard writing lock files under dir.
func NewGuard(dir, owner string) *Guard {
	return &Guard{dir: dir, owner: owner}
}

// DefaultOwner builds a lock owner identity for the current process.
func DefaultOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "autopilot"
	}
	return fmt.Sprintf("%s@%s/%d", user, host, os.Getpid())
}

// lockPath maps a scope key to its lock file path.
func (g *Guard) lockPath(scope string) string {
	name := strings.NewReplacer(":", "_", "/", "_", string(filepath.Separator), "_").Replace(scope)
	return filepath.Join(g.dir, name+".lock.yaml")
}

func (g *Guard) readLock(scope string) (*Lock, error) {
	data, err := os.ReadFile(g.lockPath(scope))
	if err != nil {
		return nil, err
	}
	var l Lock
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	return &l, nil
}

func (g *Guard) writeLock(scope string, l *Lock) error {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	// Write to temp file first, rename for atomic update.
	path := g.lockPath(scope)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename lock file: %w", err)
	}
	return nil
}

// Acquire attempts to take the lock for a scope with the given TTL.
// Returns a *BusyError when another live holder owns the scope. An expired
// lock is claimed. Re-acquiring a scope this guard already holds refreshes it.
func (g *Guard) Acquire(scope string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, err := g.readLock(scope)
	if err == nil {
		if !existing.Expired() && existing.Owner != g.owner {
			return &BusyError{Scope: scope, Owner: existing.Owner, Since: existing.Acquired}
		}
		// Expired, or our own lock: fall through and rewrite.
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read lock: %w", err)
	}

	if ttl < MinTTL {
		ttl = MinTTL
	}

	return g.writeLock(scope, &Lock{
		Scope:    scope,
		Owner:    g.owner,
		Acquired: time.Now().UTC(),
		TTL:      ttl.String(),
		PID:      os.Getpid(),
	})
}

// Release releases the lock for a scope. Releasing an unheld scope is a
// no-op; releasing another run's lock is an error.
func (g *Guard) Release(scope string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, err := g.readLock(scope)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}

	if existing.Owner != g.owner {
		return fmt.Errorf("scope %s: cannot release lock owned by %s", scope, existing.Owner)
	}

	if err := os.Remove(g.lockPath(scope)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Holder returns the current live lock for a scope, or nil if the scope is
// free (no lock, or an expired one).
func (g *Guard) Holder(scope string) (*Lock, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, err := g.readLock(scope)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lock: %w", err)
	}
	if l.Expired() {
		return nil, nil
	}
	return l, nil
}
