package session

import (
	"context"
	"testing"
	"time"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/shared/errors"
)

type memStore struct {
	session *Session
}

func (m *memStore) Get(context.Context) (*Session, error) {
	return m.session, nil
}

func (m *memStore) Update(_ context.Context, mutate func(*Session) error) (*Session, error) {
	if err := mutate(m.session); err != nil {
		return nil, err
	}
	return m.session, nil
}

type staticCatalog struct{}

func (staticCatalog) Controls(context.Context) (map[string]catalog.Control, error) {
	return map[string]catalog.Control{"c1": {ID: "c1", Name: "Firewall", Cost: 200}}, nil
}

func (staticCatalog) Threats(context.Context) (map[string]catalog.Threat, error) {
	return nil, nil
}

func (staticCatalog) Situations(context.Context) (map[string]catalog.Situation, error) {
	return nil, nil
}

func (staticCatalog) Projects(context.Context) (map[string]catalog.Project, error) {
	return nil, nil
}

type recordingBroadcaster struct {
	messages []interface{}
}

func (r *recordingBroadcaster) BroadcastJSON(v interface{}) {
	r.messages = append(r.messages, v)
}

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(sess *Session) (*Service, *memStore, *recordingBroadcaster) {
	store := &memStore{session: sess}
	broadcast := &recordingBroadcaster{}
	service := NewService(store, staticCatalog{}, broadcast)
	service.now = func() time.Time { return testTime }
	return service, store, broadcast
}

func TestStartActivatesAndResetsBookkeeping(t *testing.T) {
	stale := &Session{
		Active:           false,
		UsedThreatNames:  []string{"old threat"},
		UsedSituationIDs: []string{"s1"},
	}
	service, store, broadcast := newTestService(stale)

	sess, err := service.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if !sess.Active {
		t.Error("session should be active")
	}
	if sess.StartedAt == nil || !sess.StartedAt.Equal(testTime) {
		t.Errorf("started at = %v, want %v", sess.StartedAt, testTime)
	}
	if len(store.session.UsedThreatNames) != 0 || len(store.session.UsedSituationIDs) != 0 {
		t.Error("starting must reset the exhaustion bookkeeping")
	}
	if len(broadcast.messages) != 1 {
		t.Fatalf("broadcasts = %d, want the start announcement", len(broadcast.messages))
	}
}

func TestStartActiveSessionRejected(t *testing.T) {
	startedAt := testTime.Add(-time.Hour)
	service, _, _ := newTestService(&Session{Active: true, StartedAt: &startedAt})

	_, err := service.Start(context.Background())
	if !errors.Is(err, errors.ErrorTypeConflict) {
		t.Fatalf("error type = %v, want conflict", errors.GetType(err))
	}
}

func TestStopDeactivates(t *testing.T) {
	startedAt := testTime.Add(-time.Hour)
	service, store, broadcast := newTestService(&Session{Active: true, StartedAt: &startedAt})

	sess, err := service.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if sess.Active {
		t.Error("session should be inactive")
	}
	if store.session.StoppedAt == nil {
		t.Error("stopped at should be recorded")
	}
	if len(broadcast.messages) != 1 {
		t.Errorf("broadcasts = %d, want the stop announcement", len(broadcast.messages))
	}
}

func TestStopInactiveSessionRejected(t *testing.T) {
	service, _, _ := newTestService(&Session{Active: false})

	_, err := service.Stop(context.Background())
	if !errors.Is(err, errors.ErrorTypeConflict) {
		t.Fatalf("error type = %v, want conflict", errors.GetType(err))
	}
}
