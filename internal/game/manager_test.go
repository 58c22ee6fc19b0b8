package game

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/bridgequest/internal/config"
	"github.com/ashureev/bridgequest/internal/domain"
	"github.com/ashureev/bridgequest/internal/schedule"
)

func idleSession(userID string, lastSeen time.Time) *Session {
	return NewSession(Deps{
		Game:      config.DefaultGame(),
		Puzzles:   &fakePuzzles{},
		Voice:     &fakeVoice{},
		Scheduler: schedule.NewManual(),
		Logger:    discardLogger(),
		Now:       func() time.Time { return lastSeen },
	}, userID, "")
}

func TestManagerRegister(t *testing.T) {
	m := NewManager()
	s := idleSession("user123", time.Now())

	m.Register("user123", "tab-1", s)

	if got := m.Get("user123", "tab-1"); got != s {
		t.Errorf("Expected session %v, got %v", s, got)
	}
}

func TestManagerRegisterReplacesAndCloses(t *testing.T) {
	m := NewManager()
	old := idleSession("user123", time.Now())
	replacement := idleSession("user123", time.Now())

	m.Register("user123", "tab-1", old)
	m.Register("user123", "tab-1", replacement)

	if got := m.Get("user123", "tab-1"); got != replacement {
		t.Fatalf("Expected replacement session, got %v", got)
	}
	if phase := old.Snapshot().Phase; phase != domain.PhaseClosed {
		t.Errorf("Expected replaced session to be closed, got %s", phase)
	}
	if phase := replacement.Snapshot().Phase; phase != domain.PhaseIdle {
		t.Errorf("Replacement must stay open, got %s", phase)
	}
}

func TestManagerUnregisterStale(t *testing.T) {
	m := NewManager()
	s1 := idleSession("user123", time.Now())
	s2 := idleSession("user123", time.Now())

	m.Register("user123", "tab-1", s1)
	m.Register("user123", "tab-2", s2)

	// Unregistering a session that was already replaced must be a no-op.
	stale := idleSession("user123", time.Now())
	m.Unregister("user123", "tab-1", stale)
	if m.Get("user123", "tab-1") != s1 {
		t.Fatal("stale unregister removed the live session")
	}

	m.Unregister("user123", "tab-1", s1)
	if m.Get("user123", "tab-1") != nil {
		t.Error("Expected tab-1 to be removed")
	}
	if m.Get("user123", "tab-2") != s2 {
		t.Error("Expected tab-2 to remain active")
	}
}

func TestManagerCloseUser(t *testing.T) {
	m := NewManager()
	a := idleSession("u1", time.Now())
	b := idleSession("u1", time.Now())
	other := idleSession("u2", time.Now())
	m.Register("u1", "tab-1", a)
	m.Register("u1", "tab-2", b)
	m.Register("u2", "tab-1", other)

	m.CloseUser("u1")

	if m.Get("u1", "tab-1") != nil || m.Get("u1", "tab-2") != nil {
		t.Error("Expected all of u1's sessions to be removed")
	}
	if a.Snapshot().Phase != domain.PhaseClosed || b.Snapshot().Phase != domain.PhaseClosed {
		t.Error("Expected u1's sessions to be closed")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 remaining session, got %d", m.Count())
	}
}

func TestManagerExpire(t *testing.T) {
	now := time.Now()
	m := NewManager()
	stale := idleSession("u1", now.Add(-2*time.Hour))
	fresh := idleSession("u1", now)
	m.Register("u1", "tab-1", stale)
	m.Register("u1", "tab-2", fresh)

	if n := m.Expire(now.Add(-time.Hour)); n != 1 {
		t.Fatalf("Expected 1 expired session, got %d", n)
	}
	if m.Get("u1", "tab-1") != nil {
		t.Error("Expected stale session to be removed")
	}
	if stale.Snapshot().Phase != domain.PhaseClosed {
		t.Error("Expected stale session to be closed")
	}
	if m.Get("u1", "tab-2") != fresh {
		t.Error("Expected fresh session to remain")
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Register("concurrentUser", "tab-"+strconv.Itoa(i), idleSession("concurrentUser", time.Now()))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Get("concurrentUser", "tab-"+strconv.Itoa(i))
		}
	}()

	wg.Wait()
	m.CloseAll()
	if m.Count() != 0 {
		t.Errorf("Expected no sessions after CloseAll, got %d", m.Count())
	}
}

func TestReaperRemovesIdleSessions(t *testing.T) {
	m := NewManager()
	s := idleSession("u1", time.Now().Add(-time.Hour))
	m.Register("u1", "tab-1", s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaned := make(chan int, 1)
	StartReaper(ctx, m, 10*time.Millisecond, time.Minute, func(n int) {
		select {
		case cleaned <- n:
		default:
		}
	})

	select {
	case n := <-cleaned:
		if n != 1 {
			t.Errorf("Expected 1 session cleaned, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reaper")
	}
	if m.Count() != 0 {
		t.Errorf("Expected manager to be empty, got %d", m.Count())
	}
}
