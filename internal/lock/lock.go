// Package lock serializes driver provisioning across processes sharing a
// cache directory.
package lock

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	// FileName is the lock file created inside the locked directory.
	FileName = "provision.lock"

	// DefaultStaleAfter is the maximum age of a lock before it's considered stale.
	DefaultStaleAfter = 10 * time.Minute

	// DefaultPollInterval is how often a held lock is re-checked.
	DefaultPollInterval = 100 * time.Millisecond
)

// ErrLockExists is returned when the lock is held and the caller did not
// wait for it.
var ErrLockExists = errors.New("provision lock exists: another process may be downloading")

// Lock is an acquired provisioning lock.
type Lock struct {
	path string
	file *os.File
}

type options struct {
	staleAfter   time.Duration
	pollInterval time.Duration
	wait         bool
}

// Option configures AcquireLock.
type Option func(*options)

// WithStaleAfter sets the age after which an existing lock is taken over.
func WithStaleAfter(d time.Duration) Option {
	return func(o *options) { o.staleAfter = d }
}

// WithPollInterval sets how often a held lock is re-checked while waiting.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// NoWait makes AcquireLock fail with ErrLockExists instead of waiting.
func NoWait() Option {
	return func(o *options) { o.wait = false }
}

// AcquireLock takes an exclusive lock on dir, creating dir if needed.
// While another live process holds the lock it polls until ctx is done.
// Locks left by dead processes are taken over, as are locks without a
// readable owner once they are older than the stale threshold.
func AcquireLock(ctx context.Context, dir string, opts ...Option) (*Lock, error) {
	o := options{
		staleAfter:   DefaultStaleAfter,
		pollInterval: DefaultPollInterval,
		wait:         true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, FileName)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		l, err := tryAcquire(lockPath)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrLockExists) {
			return nil, err
		}

		if isStale(ctx, lockPath, o.staleAfter) {
			// Another waiter may win the race to recreate it; the next
			// attempt sorts that out.
			_ = os.Remove(lockPath)
			continue
		}

		if !o.wait {
			return nil, ErrLockExists
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", lockPath, ctx.Err())
		case <-ticker.C:
		}
	}
}

func tryAcquire(lockPath string) (*Lock, error) {
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLockExists
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	// Write lock metadata (PID and timestamp)
	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

// isStale reports whether the lock at lockPath can be taken over. A lock
// naming a live process is never stale; age decides only when the owner
// cannot be determined.
func isStale(ctx context.Context, lockPath string, staleAfter time.Duration) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		// Vanished between the create attempt and now
		return os.IsNotExist(err)
	}

	if pid, ok := readPID(lockPath); ok {
		if pid == os.Getpid() {
			return false
		}
		exists, err := process.PidExistsWithContext(ctx, int32(pid))
		if err == nil {
			return !exists
		}
	}

	return time.Since(info.ModTime()) > staleAfter
}

// readPID extracts the pid= line from a lock file.
func readPID(lockPath string) (int, bool) {
	f, err := os.Open(lockPath)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		value, found := strings.CutPrefix(scanner.Text(), "pid=")
		if !found {
			continue
		}
		pid, err := strconv.Atoi(value)
		if err != nil || pid <= 0 {
			return 0, false
		}
		return pid, true
	}
	return 0, false
}
