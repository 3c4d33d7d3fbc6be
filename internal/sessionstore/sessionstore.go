// Package sessionstore implements C8: the in-memory meeting-session
// store. It generalizes the teacher's cache.MemoryStore ticker-driven
// expiry sweep to a typed MeetingSession map with per-device replacement
// and completion-triggered cleanup, instead of a generic string cache.
package sessionstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
)

// DefaultTTL is how long a session survives without being completed.
const DefaultTTL = time.Hour

type entry struct {
	session   *entities.MeetingSession
	expiresAt time.Time
}

// Store is the C8 session store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	byDevice map[string]string
	ttl      time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
}

// New constructs a Store and starts its background expiry sweep.
func New(ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*entry),
		byDevice: make(map[string]string),
		ttl:      ttl,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweep goroutine.
func (s *Store) Close() {
	close(s.stopCh)
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepExpired(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

// NewMeetingID renders a 128-bit random identifier as 32 hex chars.
func NewMeetingID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("sessionstore: generate meeting id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create registers a new session for deviceID, evicting any prior
// session for that device unconditionally, per the per-device
// single-session rule.
func (s *Store) Create(deviceID string, session *entities.MeetingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prevID, ok := s.byDevice[deviceID]; ok {
		s.deleteLocked(prevID)
	}

	s.sessions[session.MeetingID] = &entry{session: session, expiresAt: time.Now().Add(s.ttl)}
	s.byDevice[deviceID] = session.MeetingID
}

// Get returns the session for meetingID, if present and unexpired.
func (s *Store) Get(meetingID string) (*entities.MeetingSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[meetingID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.session, true
}

// Delete removes meetingID and unlinks its converted audio file. Clip files
// are not tracked by the session and are not removed here.
func (s *Store) Delete(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(meetingID)
}

func (s *Store) deleteLocked(meetingID string) {
	e, ok := s.sessions[meetingID]
	if !ok {
		return
	}
	delete(s.sessions, meetingID)
	for device, id := range s.byDevice {
		if id == meetingID {
			delete(s.byDevice, device)
		}
	}
	if e.session.AudioPath != "" {
		if err := os.Remove(e.session.AudioPath); err != nil && !os.IsNotExist(err) && s.logger != nil {
			s.logger.Warn("sessionstore: could not remove audio file",
				zap.String("meeting_id", meetingID), zap.Error(err))
		}
	}
}

// MarkHandled records label as handled for meetingID.
func (s *Store) MarkHandled(meetingID, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[meetingID]
	if !ok {
		return
	}
	e.session.MarkHandled(label)
}

// SetSummary attaches a summary to meetingID.
func (s *Store) SetSummary(meetingID string, summary *entities.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[meetingID]
	if !ok {
		return
	}
	e.session.Summary = summary
}

// CleanupIfComplete deletes meetingID and returns true iff its pending
// speaker set is empty and it has a summary attached.
func (s *Store) CleanupIfComplete(meetingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[meetingID]
	if !ok || !e.session.ReadyForCleanup() {
		return false
	}
	s.deleteLocked(meetingID)
	return true
}

// SweepExpired deletes every session whose TTL has elapsed as of now.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.deleteLocked(id)
	}
	return len(expired)
}
