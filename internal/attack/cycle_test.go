package attack

import (
	"context"
	"testing"
	"time"

	"cyberrange-server/internal/player"
	"cyberrange-server/internal/session"
)

type memSessionStore struct {
	session *session.Session
}

func (m *memSessionStore) Get(context.Context) (*session.Session, error) {
	return m.session, nil
}

func (m *memSessionStore) Update(_ context.Context, mutate func(*session.Session) error) (*session.Session, error) {
	if err := mutate(m.session); err != nil {
		return nil, err
	}
	return m.session, nil
}

type recordingBroadcaster struct {
	messages []map[string]interface{}
}

func (r *recordingBroadcaster) BroadcastJSON(v interface{}) {
	if msg, ok := v.(map[string]interface{}); ok {
		r.messages = append(r.messages, msg)
	}
}

func (r *recordingBroadcaster) events() []string {
	var events []string
	for _, msg := range r.messages {
		if event, ok := msg["event"].(string); ok {
			events = append(events, event)
		}
	}
	return events
}

func newTestCycle(sess *session.Session, store *memStore) (*Cycle, *memSessionStore, *recordingBroadcaster) {
	sessions := &memSessionStore{session: sess}
	broadcast := &recordingBroadcaster{}

	settle := NewService(store, testCatalogs(), testGame())
	settle.now = func() time.Time { return testTime }

	cycle := NewCycle(sessions, store, testCatalogs(), settle, broadcast, testGame())
	cycle.now = func() time.Time { return testTime }
	return cycle, sessions, broadcast
}

func activeSession(startedAgo time.Duration) *session.Session {
	startedAt := testTime.Add(-startedAgo)
	return &session.Session{Active: true, StartedAt: &startedAt}
}

func TestCycleSkipsInactiveSession(t *testing.T) {
	store := newMemStore()
	store.states["p1"] = player.NewState(15000, testTime.Add(-time.Hour))

	cycle, _, broadcast := newTestCycle(&session.Session{Active: false}, store)

	if err := cycle.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(broadcast.messages) != 0 {
		t.Errorf("broadcasts = %v, want none", broadcast.messages)
	}
}

func TestCycleSkipsGracePeriod(t *testing.T) {
	store := newMemStore()
	store.states["p1"] = player.NewState(15000, testTime.Add(-time.Hour))

	cycle, sessions, broadcast := newTestCycle(activeSession(2*time.Minute), store)

	if err := cycle.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(broadcast.messages) != 0 {
		t.Errorf("broadcasts = %v, want none inside the grace period", broadcast.messages)
	}
	if len(sessions.session.UsedThreatNames) != 0 {
		t.Error("no threat should be consumed inside the grace period")
	}
}

func TestCycleAnnouncesAndSettles(t *testing.T) {
	store := newMemStore()
	state := player.NewState(15000, testTime.Add(-20*time.Minute))
	store.states["p1"] = state

	cycle, sessions, broadcast := newTestCycle(activeSession(30*time.Minute), store)

	if err := cycle.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	sess := sessions.session
	if len(sess.UsedThreatNames) != 1 || sess.UsedThreatNames[0] != "Ransomware Outbreak" {
		t.Errorf("used threats = %v, want the announced name recorded", sess.UsedThreatNames)
	}
	if sess.LastAttackAt == nil || !sess.LastAttackAt.Equal(testTime) {
		t.Errorf("last attack at = %v, want %v", sess.LastAttackAt, testTime)
	}
	if sess.PendingStatsRefresh {
		t.Error("pending stats refresh must be cleared after settlement")
	}

	if len(broadcast.messages) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(broadcast.messages))
	}
	if broadcast.messages[0]["attack"] != "Ransomware Outbreak" {
		t.Errorf("attack broadcast = %v, want the threat name", broadcast.messages[0])
	}

	if len(state.AttackHistory) != 1 {
		t.Errorf("attack history entries = %d, want 1 (settlement ran)", len(state.AttackHistory))
	}
	if state.IsPlaying {
		t.Error("player lock must be released after settlement")
	}
}

func TestCycleExhaustedPoolEndsGame(t *testing.T) {
	store := newMemStore()
	store.states["p1"] = player.NewState(15000, testTime.Add(-time.Hour))

	sess := activeSession(30 * time.Minute)
	sess.UsedThreatNames = []string{"Ransomware Outbreak"}

	cycle, sessions, broadcast := newTestCycle(sess, store)

	if err := cycle.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if sessions.session.Active {
		t.Error("session must stop once the threat pool is exhausted")
	}

	events := broadcast.events()
	if len(events) != 1 || events[0] != "game_over" {
		t.Errorf("events = %v, want [game_over]", events)
	}
}
