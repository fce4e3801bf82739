package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
)

// fakeTransport counts dials and simulates write failures.
type fakeTransport struct {
	mu           sync.Mutex
	dials        int
	closes       int
	dialErr      error
	failWrites   int // fail this many writes before succeeding
	failCall     int // fail exactly this write call (1-based), once
	callCount    int
	writeErr     error
	writes       [][]byte
	notify       func(payload []byte)
	subscribeErr error
}

func (t *fakeTransport) Dial(ctx context.Context, address string) (Link, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	return &fakeLink{t: t}, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

func (t *fakeTransport) recorded() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.writes))
	copy(out, t.writes)
	return out
}

func (t *fakeTransport) pushNotification(payload []byte) {
	t.mu.Lock()
	fn := t.notify
	t.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

type fakeLink struct {
	t *fakeTransport
}

func (l *fakeLink) Write(ctx context.Context, frame []byte) error {
	l.t.mu.Lock()
	defer l.t.mu.Unlock()
	l.t.callCount++
	if l.t.failWrites > 0 || l.t.callCount == l.t.failCall {
		if l.t.failWrites > 0 {
			l.t.failWrites--
		}
		if l.t.writeErr != nil {
			return l.t.writeErr
		}
		return fmt.Errorf("transient write failure")
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	l.t.writes = append(l.t.writes, cp)
	return nil
}

func (l *fakeLink) Subscribe(fn func(payload []byte)) error {
	l.t.mu.Lock()
	defer l.t.mu.Unlock()
	if l.t.subscribeErr != nil {
		return l.t.subscribeErr
	}
	l.t.notify = fn
	return nil
}

func (l *fakeLink) Close() error {
	l.t.mu.Lock()
	defer l.t.mu.Unlock()
	l.t.closes++
	return nil
}

func testConfig() Config {
	return Config{
		IdleTimeout:  time.Hour,
		WriteRetries: 3,
		RetryBackoff: time.Millisecond,
	}
}

func testFrame(a, b byte) chihiros.Frame {
	return chihiros.MustEncodeFrame(chihiros.CmdLED, chihiros.ModeManualSetting,
		chihiros.MessageID{High: 0, Low: 1}, []byte{a, b})
}

func TestSession_SendConnectsOnDemand(t *testing.T) {
	ft := &fakeTransport{}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	if s.Connected() {
		t.Error("session should start disconnected")
	}
	if err := s.Send(context.Background(), testFrame(0, 10)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !s.Connected() {
		t.Error("session should stay connected after Send")
	}
	if ft.dialCount() != 1 {
		t.Errorf("dial count = %d, want 1", ft.dialCount())
	}
	if len(ft.recorded()) != 1 {
		t.Errorf("write count = %d, want 1", len(ft.recorded()))
	}

	// A second Send reuses the link.
	if err := s.Send(context.Background(), testFrame(0, 20)); err != nil {
		t.Fatalf("second Send failed: %v", err)
	}
	if ft.dialCount() != 1 {
		t.Errorf("dial count after reuse = %d, want 1", ft.dialCount())
	}
}

func TestSession_RetriesTransientFailures(t *testing.T) {
	// Three transient failures, then success: the command must still come
	// through exactly once, with a fresh connection per retry.
	ft := &fakeTransport{failWrites: 3}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	if err := s.Send(context.Background(), testFrame(0, 50)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := len(ft.recorded()); got != 1 {
		t.Errorf("successful write count = %d, want 1", got)
	}
	// Initial dial plus one per retry.
	if ft.dialCount() != 4 {
		t.Errorf("dial count = %d, want 4", ft.dialCount())
	}
	// Each failed attempt ends in a full disconnect.
	if ft.closeCount() != 3 {
		t.Errorf("close count = %d, want 3", ft.closeCount())
	}
}

func TestSession_RetriesExhausted(t *testing.T) {
	ft := &fakeTransport{failWrites: 100}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	err := s.Send(context.Background(), testFrame(0, 50))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if ft.dialCount() != 4 {
		t.Errorf("dial count = %d, want 4", ft.dialCount())
	}
	if s.Connected() {
		t.Error("session should be disconnected after a failed command")
	}
}

func TestSession_UnreachableNotRetried(t *testing.T) {
	ft := &fakeTransport{dialErr: fmt.Errorf("%w: not advertising", ErrDeviceUnreachable)}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	err := s.Send(context.Background(), testFrame(0, 50))
	if !errors.Is(err, ErrDeviceUnreachable) {
		t.Fatalf("error = %v, want ErrDeviceUnreachable", err)
	}
	if ft.dialCount() != 1 {
		t.Errorf("dial count = %d, want 1 (no retries)", ft.dialCount())
	}
}

func TestSession_CharacteristicMissingNotRetried(t *testing.T) {
	ft := &fakeTransport{failWrites: 100, writeErr: &CharacteristicMissingError{UUID: chihiros.UARTWriteCharUUID}}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	err := s.Send(context.Background(), testFrame(0, 50))
	var cm *CharacteristicMissingError
	if !errors.As(err, &cm) {
		t.Fatalf("error = %v, want CharacteristicMissingError", err)
	}
	if ft.dialCount() != 1 {
		t.Errorf("dial count = %d, want 1 (no retries)", ft.dialCount())
	}
}

func TestSession_BatchRetriedAsAWhole(t *testing.T) {
	// The first write of the batch succeeds, the second fails once. The
	// retry must replay the batch from the first frame, not resume mid-way.
	ft := &fakeTransport{failCall: 2}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	first := testFrame(0, 1)
	second := testFrame(0, 2)
	if err := s.Send(context.Background(), first, second); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	writes := ft.recorded()
	if len(writes) != 3 {
		t.Fatalf("write count = %d, want 3 (first frame twice, second once)", len(writes))
	}
	if !bytesEqual(writes[0], first) || !bytesEqual(writes[1], first) || !bytesEqual(writes[2], second) {
		t.Error("retry did not replay the batch from the first frame")
	}
}

func bytesEqual(a []byte, b chihiros.Frame) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSession_IdleDisconnect(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 20 * time.Millisecond
	ft := &fakeTransport{}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", cfg, nil)

	if err := s.Send(context.Background(), testFrame(0, 10)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Connected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Connected() {
		t.Fatal("session did not disconnect after idle timeout")
	}
	if ft.closeCount() != 1 {
		t.Errorf("close count = %d, want 1", ft.closeCount())
	}

	// The next command dials fresh.
	if err := s.Send(context.Background(), testFrame(0, 20)); err != nil {
		t.Fatalf("Send after idle disconnect failed: %v", err)
	}
	if ft.dialCount() != 2 {
		t.Errorf("dial count = %d, want 2", ft.dialCount())
	}
}

func TestSession_ConcurrentSendsShareOneConnection(t *testing.T) {
	ft := &fakeTransport{}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n byte) {
			defer wg.Done()
			// Two frames per command; they must never interleave with
			// another command's frames.
			err := s.Send(context.Background(), testFrame(n, 0), testFrame(n, 1))
			if err != nil {
				t.Errorf("worker %d: Send failed: %v", n, err)
			}
		}(byte(i))
	}
	wg.Wait()

	if ft.dialCount() != 1 {
		t.Errorf("dial count = %d, want 1", ft.dialCount())
	}

	writes := ft.recorded()
	if len(writes) != workers*2 {
		t.Fatalf("write count = %d, want %d", len(writes), workers*2)
	}
	for i := 0; i < len(writes); i += 2 {
		a, b := chihiros.Frame(writes[i]), chihiros.Frame(writes[i+1])
		if a.Params()[0] != b.Params()[0] {
			t.Fatalf("frames %d and %d interleave commands from different workers", i, i+1)
		}
		if a.Params()[1] != 0 || b.Params()[1] != 1 {
			t.Fatalf("frames %d and %d arrived out of order", i, i+1)
		}
	}
}

func TestSession_NotificationDispatch(t *testing.T) {
	ft := &fakeTransport{}
	s := NewSession(ft, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	got := make(chan []byte, 1)
	s.OnNotification(func(payload []byte) {
		got <- payload
	})

	if err := s.Send(context.Background(), testFrame(0, 10)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	want := chihiros.MustEncodeFrame(chihiros.CmdNotify, chihiros.ModeDailyTotals,
		chihiros.MessageID{High: 0, Low: 9}, []byte{0, 113, 1, 0, 2, 0, 0, 5})
	ft.pushNotification(want)

	select {
	case payload := <-got:
		totals, ok := chihiros.ParseDailyTotals(payload)
		if !ok {
			t.Fatal("dispatched payload did not parse as daily totals")
		}
		if totals[0] != 11.3 {
			t.Errorf("channel 0 total = %v, want 11.3", totals[0])
		}
	case <-time.After(time.Second):
		t.Fatal("notification was not dispatched")
	}
}

func TestSession_MessageIDSequence(t *testing.T) {
	s := NewSession(&fakeTransport{}, "AA:BB:CC:DD:EE:FF", testConfig(), nil)

	first := s.NextMessageID()
	if first != (chihiros.MessageID{High: 0, Low: 1}) {
		t.Errorf("first id = %s, want (0,1)", first)
	}
	seen := map[chihiros.MessageID]bool{first: true}
	for i := 0; i < 500; i++ {
		id := s.NextMessageID()
		if !id.Valid() {
			t.Fatalf("id %s contains sentinel", id)
		}
		if seen[id] {
			t.Fatalf("id %s repeated", id)
		}
		seen[id] = true
	}
}

func TestSession_SessionsDoNotShareSequence(t *testing.T) {
	m := NewManager(&fakeTransport{}, testConfig(), nil)
	a := m.Session("AA:BB:CC:DD:EE:01")
	b := m.Session("AA:BB:CC:DD:EE:02")

	a.NextMessageID()
	a.NextMessageID()
	if got := b.NextMessageID(); got != (chihiros.MessageID{High: 0, Low: 1}) {
		t.Errorf("fresh session id = %s, want (0,1)", got)
	}
}

func TestManager_SessionPerAddress(t *testing.T) {
	m := NewManager(&fakeTransport{}, testConfig(), nil)

	a := m.Session("AA:BB:CC:DD:EE:01")
	if m.Session("AA:BB:CC:DD:EE:01") != a {
		t.Error("same address should return the same session")
	}
	if m.Session("AA:BB:CC:DD:EE:02") == a {
		t.Error("different addresses should get distinct sessions")
	}
}

func TestManager_CloseAll(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, testConfig(), nil)
	s := m.Session("AA:BB:CC:DD:EE:01")

	if err := s.Send(context.Background(), testFrame(0, 10)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	m.CloseAll()
	if s.Connected() {
		t.Error("CloseAll should disconnect sessions")
	}
	if ft.closeCount() != 1 {
		t.Errorf("close count = %d, want 1", ft.closeCount())
	}
}
