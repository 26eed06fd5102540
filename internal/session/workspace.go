package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/siftdata/sift/internal/frame"
)

// MaxSessions caps the number of datasets open at once.
const MaxSessions = 10

// ErrTooManySessions is returned when opening a dataset would exceed
// MaxSessions.
var ErrTooManySessions = errors.New("too many open sessions")

// Workspace holds the independent sessions of a multi-dataset
// exploration. Sessions share no mutable data, so the workspace only guards
// its own map.
type Workspace struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{sessions: make(map[string]*Session)}
}

// Open creates a session for an already-loaded dataset.
func (w *Workspace) Open(name string, base *frame.Frame, mode Mode, notifier Notifier) (*Session, error) {
	return w.OpenSource(context.Background(), name, frame.Eager{Frame: base}, mode, notifier)
}

// OpenSource creates a session by collecting a deferred dataset source. The
// source is only read here, after the workspace has accepted the session, so
// loaders can hand back a scan without touching the file up front.
func (w *Workspace) OpenSource(ctx context.Context, name string, src frame.Source, mode Mode, notifier Notifier) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.sessions) >= MaxSessions {
		return nil, ErrTooManySessions
	}
	if _, exists := w.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	s, err := NewFromSource(ctx, name, src, mode, notifier)
	if err != nil {
		return nil, err
	}
	w.sessions[name] = s
	return s, nil
}

// Get returns the named session.
func (w *Workspace) Get(name string) (*Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[name]
	return s, ok
}

// Close cancels any in-flight work and removes the session. The session's
// base frame is released with it.
func (w *Workspace) Close(name string) bool {
	w.mu.Lock()
	s, ok := w.sessions[name]
	delete(w.sessions, name)
	w.mu.Unlock()
	if ok {
		s.Cancel()
		s.Wait()
	}
	return ok
}

// Names returns the open session names, sorted.
func (w *Workspace) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.sessions))
	for name := range w.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of open sessions.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}
