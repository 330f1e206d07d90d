package tailctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

var ErrAlreadyTailing = errors.New("another fidctail process is already tailing this source")

// Session is one locked tail run.
type Session struct {
	ID      string
	Host    string
	Source  string
	Started time.Time

	lockPath string
	lock     *flock.Flock
}

// LockPath returns the lock file used for host and source under lockDir.
func LockPath(lockDir, host, source string) string {
	return filepath.Join(lockDir, lockName(host)+"--"+lockName(source)+".lock")
}

func lockName(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if i := strings.Index(value, "://"); i >= 0 {
		value = value[i+3:]
	}
	value = strings.TrimRight(value, "/")
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// Acquire takes the lock for host and source without blocking. When another
// process holds it the returned error wraps ErrAlreadyTailing.
func Acquire(lockDir, host, source string) (*Session, error) {
	if strings.TrimSpace(lockDir) == "" {
		return nil, errors.New("tail session: lock directory is required")
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := LockPath(lockDir, host, source)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		if holder := readHolder(path); holder != "" {
			return nil, fmt.Errorf("%w (%s)", ErrAlreadyTailing, holder)
		}
		return nil, ErrAlreadyTailing
	}

	session := &Session{
		ID:       uuid.NewString(),
		Host:     host,
		Source:   source,
		Started:  time.Now().UTC(),
		lockPath: path,
		lock:     lock,
	}
	// Best effort; only read back for the ErrAlreadyTailing message.
	_ = os.WriteFile(path, []byte(session.holderLine()), 0o644)
	return session, nil
}

func (s *Session) holderLine() string {
	return "pid " + strconv.Itoa(os.Getpid()) + " session " + s.ID + "\n"
}

func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// LockPath returns the file backing the session lock.
func (s *Session) LockPath() string {
	if s == nil {
		return ""
	}
	return s.lockPath
}

// Release drops the lock. It is safe to call more than once.
func (s *Session) Release() error {
	if s == nil || s.lock == nil {
		return nil
	}
	if !s.lock.Locked() {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
