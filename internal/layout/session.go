package layout

import (
	"sync"

	"github.com/google/uuid"

	"cadbridge/internal/domain"
)

// Session is the layout state of one sketch: the last-shape record and the
// ordered history of every tracked shape placed in it. A Session is owned by
// the sketch it belongs to and is reset when a new sketch opens.
type Session struct {
	mu      sync.RWMutex
	id      string
	sketch  string
	last    *domain.LastShape
	history []domain.LastShape
}

func NewSession(sketch string) *Session {
	return &Session{id: uuid.New().String(), sketch: sketch}
}

// ID identifies this session instance. It changes on every Reset.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Sketch is the host name of the sketch the session is tracking.
func (s *Session) Sketch() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sketch
}

// Record overwrites the last-shape record with ls. Untracked kinds are ignored.
func (s *Session) Record(ls domain.LastShape) {
	if !ls.Kind.Tracked() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := ls
	s.last = &rec
	s.history = append(s.history, ls)
}

// Last returns the current record. Before the first tracked shape it fails
// with *domain.NoReferenceShapeError.
func (s *Session) Last() (domain.LastShape, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.LastShape{}, &domain.NoReferenceShapeError{Op: "query last shape"}
	}
	return *s.last, nil
}

// History returns a copy of every tracked shape in placement order.
func (s *Session) History() []domain.LastShape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LastShape, len(s.history))
	copy(out, s.history)
	return out
}

// Reset starts a fresh session for sketch, dropping the record and history.
func (s *Session) Reset(sketch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = uuid.New().String()
	s.sketch = sketch
	s.last = nil
	s.history = nil
}

// Place picks the anchor for a shape with the given half-extent from hints and
// this session's record.
func (s *Session) Place(op string, hints Hints, halfExtent float64) (Placement, error) {
	s.mu.RLock()
	var last *domain.LastShape
	if s.last != nil {
		rec := *s.last
		last = &rec
	}
	s.mu.RUnlock()
	return Select(op, hints, halfExtent, last)
}
