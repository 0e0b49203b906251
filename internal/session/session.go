// Package session keeps uploaded tables in memory, one per upload, keyed by a random id.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

// ErrNotFound indicates an unknown or expired session id.
var ErrNotFound = errors.New("session not found")

// Session is one uploaded table. The table is never modified after upload.
type Session struct {
	ID        string          `json:"id"`
	FileName  string          `json:"file_name"`
	Size      int64           `json:"size"`
	Table     *analysis.Table `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	LastSeen  time.Time       `json:"last_seen"`
}

// Store is a concurrency-safe in-memory session store with idle expiry and a size cap.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
	logger   *slog.Logger
}

// NewStore creates a store. ttl <= 0 disables expiry; max <= 0 disables the cap.
func NewStore(ttl time.Duration, max int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// Put stores an uploaded table. When id names a live session its table is replaced
// and the id kept; otherwise a new session is created.
func (s *Store) Put(id, fileName string, size int64, t *analysis.Table) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if sess, ok := s.sessions[id]; ok && !s.expired(sess, now) {
		sess.FileName, sess.Size, sess.Table = fileName, size, t
		sess.UpdatedAt, sess.LastSeen = now, now
		s.logger.Info("session replaced", slog.String("session_id", id), slog.String("file", fileName))
		return *sess
	}
	sess := &Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Size:      size,
		Table:     t,
		CreatedAt: now,
		UpdatedAt: now,
		LastSeen:  now,
	}
	s.sessions[sess.ID] = sess
	s.enforceCap(sess.ID)
	s.logger.Info("session created", slog.String("session_id", sess.ID), slog.String("file", fileName), slog.Int("rows", t.Rows()))
	return *sess
}

// Get returns a live session and marks it as used.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return Session{}, ErrNotFound
	}
	sess.LastSeen = now
	return *sess, nil
}

// Delete removes a session; it reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.LastSeen) > s.ttl
}

// enforceCap evicts least recently used sessions other than keep; callers hold s.mu.
func (s *Store) enforceCap(keep string) {
	if s.max <= 0 || len(s.sessions) <= s.max {
		return
	}
	all := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if id != keep {
			all = append(all, sess)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastSeen.Equal(all[j].LastSeen) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].LastSeen.Before(all[j].LastSeen)
	})
	for _, sess := range all[:len(s.sessions)-s.max] {
		delete(s.sessions, sess.ID)
		s.logger.Info("session evicted", slog.String("session_id", sess.ID))
	}
}
