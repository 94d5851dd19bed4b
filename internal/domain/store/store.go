// Package store is the single authoritative table of discovered
// applications and debug sessions. All components funnel mutations
// through its operations; external observers receive change events
// without mutation ever blocking on their consumption.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/shared/types"
	"go.uber.org/zap"
)

const subscriberBuffer = 256

// Store owns the application and session maps
type Store struct {
	mu       sync.RWMutex
	apps     map[string]*types.ApplicationInfo // Protected by mu
	sessions map[string]*sessionRecord         // Protected by mu
	subs     map[int]chan types.Event          // Protected by mu
	nextSub  int
	logSize  int
	logger   *logging.Logger
}

// sessionRecord pairs session state with its bounded log window
type sessionRecord struct {
	session types.Session
	logBuf  *Buffer
}

// New creates an empty store. logSize bounds per-session log retention
// in bytes.
func New(logSize int, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Store{
		apps:     make(map[string]*types.ApplicationInfo),
		sessions: make(map[string]*sessionRecord),
		subs:     make(map[int]chan types.Event),
		logSize:  logSize,
		logger:   logger,
	}
}

// Subscribe registers an observer. The returned channel is buffered;
// events are dropped for observers that fall behind rather than ever
// blocking a mutation.
func (s *Store) Subscribe() (int, <-chan types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan types.Event, subscriberBuffer)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes an observer and closes its channel
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// notify must be called with mu held
func (s *Store) notify(ev types.Event) {
	ev.Timestamp = time.Now()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("Dropping event for slow observer",
				zap.Int("subscriber", id),
				zap.String("event", string(ev.Type)),
			)
		}
	}
}

// UpsertApplications merges a discovery scan into the store. Transient
// entries added via explicit path selection survive rescans.
func (s *Store) UpsertApplications(apps []types.ApplicationInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.apps {
		if !existing.Transient {
			delete(s.apps, id)
		}
	}
	for i := range apps {
		app := apps[i]
		s.apps[app.ID] = &app
	}
	s.notify(types.Event{Type: types.EventAppsUpdated})
}

// AddTransientApplication registers an application selected by explicit
// path, not found by scanning
func (s *Store) AddTransientApplication(app types.ApplicationInfo) {
	app.Transient = true

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = &app
	s.notify(types.Event{Type: types.EventAppsUpdated})
}

// Application retrieves an application by ID
func (s *Store) Application(id string) (types.ApplicationInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[id]
	if !ok {
		return types.ApplicationInfo{}, false
	}
	return *app, true
}

// Applications returns copies of all known applications
func (s *Store) Applications() []types.ApplicationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ApplicationInfo, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, *app)
	}
	return out
}

// AddSession registers a freshly launched session in status preparing
func (s *Store) AddSession(session types.Session) {
	if session.Pages == nil {
		session.Pages = make(map[string]types.PageInfo)
	}
	session.Status = types.StatusPreparing

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.InstanceID] = &sessionRecord{
		session: session,
		logBuf:  NewBuffer(s.logSize),
	}
	s.notify(types.Event{
		Type:       types.EventAppPrepare,
		InstanceID: session.InstanceID,
		AppID:      session.AppID,
	})
}

// RecordSessionStatus applies a lifecycle transition. Legal sequences
// are preparing→running, preparing→closed and running→closed; closed is
// terminal and recorded exactly once. exitCode is only meaningful for
// the closed transition.
func (s *Store) RecordSessionStatus(instanceID string, status types.SessionStatus, exitCode *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[instanceID]
	if !ok {
		return fmt.Errorf("unknown session: %s", instanceID)
	}
	cur := rec.session.Status

	switch {
	case cur == types.StatusPreparing && status == types.StatusRunning:
		rec.session.Status = types.StatusRunning
		s.notify(types.Event{
			Type:       types.EventAppStarted,
			InstanceID: instanceID,
			AppID:      rec.session.AppID,
			Pages:      copyPages(rec.session.Pages),
		})
	case (cur == types.StatusPreparing || cur == types.StatusRunning) && status == types.StatusClosed:
		now := time.Now()
		rec.session.Status = types.StatusClosed
		rec.session.ExitCode = exitCode
		rec.session.ClosedAt = &now
		s.notify(types.Event{
			Type:       types.EventAppClosed,
			InstanceID: instanceID,
			AppID:      rec.session.AppID,
			ExitCode:   exitCode,
		})
	default:
		return fmt.Errorf("illegal transition %s -> %s for session %s", cur, status, instanceID)
	}
	return nil
}

// UpsertSessionPages replaces a session's page map wholesale. An empty
// result against a non-empty prior map is skipped: a transient empty
// poll must not flash away known pages.
func (s *Store) UpsertSessionPages(instanceID string, pages map[string]types.PageInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[instanceID]
	if !ok || !rec.session.Live() {
		return
	}
	if len(pages) == 0 && len(rec.session.Pages) > 0 {
		return
	}
	rec.session.Pages = copyPages(pages)
	s.notify(types.Event{
		Type:       types.EventSessionUpdated,
		InstanceID: instanceID,
		AppID:      rec.session.AppID,
		Pages:      copyPages(pages),
	})
}

// AppendLog records an output chunk in the session's bounded log window
// and forwards it to observers
func (s *Store) AppendLog(instanceID string, stream types.LogStream, chunk []byte) {
	s.mu.RLock()
	rec, ok := s.sessions[instanceID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	rec.logBuf.Write(chunk)

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.notify(types.Event{
		Type:       types.EventLog,
		InstanceID: instanceID,
		Stream:     stream,
		Chunk:      string(chunk),
	})
}

// SessionLog returns the retained log window for a session
func (s *Store) SessionLog(instanceID string) ([]byte, bool) {
	s.mu.RLock()
	rec, ok := s.sessions[instanceID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return rec.logBuf.Bytes(), true
}

// Session retrieves a copy of a session by instance ID
func (s *Store) Session(instanceID string) (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[instanceID]
	if !ok {
		return types.Session{}, false
	}
	out := rec.session
	out.Pages = copyPages(rec.session.Pages)
	return out, true
}

// Sessions returns copies of all sessions
func (s *Store) Sessions() []types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Session, 0, len(s.sessions))
	for _, rec := range s.sessions {
		sess := rec.session
		sess.Pages = copyPages(rec.session.Pages)
		out = append(out, sess)
	}
	return out
}

// LiveSessions returns copies of sessions still owning their ports
func (s *Store) LiveSessions() []types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Session, 0, len(s.sessions))
	for _, rec := range s.sessions {
		if !rec.session.Live() {
			continue
		}
		sess := rec.session
		sess.Pages = copyPages(rec.session.Pages)
		out = append(out, sess)
	}
	return out
}

// Stats returns store statistics
func (s *Store) Stats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{
		TotalApps:       len(s.apps),
		TotalSessions:   len(s.sessions),
		SubscriberCount: len(s.subs),
	}
	for _, app := range s.apps {
		if app.Transient {
			st.TransientApps++
		} else {
			st.DiscoveredApps++
		}
	}
	for _, rec := range s.sessions {
		if rec.session.Live() {
			st.LiveSessions++
		} else {
			st.ClosedSessions++
		}
	}
	return st
}

func copyPages(pages map[string]types.PageInfo) map[string]types.PageInfo {
	out := make(map[string]types.PageInfo, len(pages))
	for k, v := range pages {
		out[k] = v
	}
	return out
}
