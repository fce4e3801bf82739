// SPDX-License-Identifier: Apache-2.0

package uart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
)

// Defaults for Config zero values.
const (
	DefaultIdleTimeout  = 120 * time.Second
	DefaultWriteRetries = 3
	DefaultRetryBackoff = 250 * time.Millisecond
)

// Config tunes session behavior. Zero values select the defaults.
type Config struct {
	// IdleTimeout is how long a session stays connected with no commands
	// before it disconnects on its own.
	IdleTimeout time.Duration
	// WriteRetries is the number of reconnect-and-retry cycles after the
	// first failed attempt.
	WriteRetries int
	// RetryBackoff is the pause before each retry.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.WriteRetries == 0 {
		c.WriteRetries = DefaultWriteRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}

// Session owns the connection lifecycle for one device address. Commands
// from any goroutine funnel through Send, which serializes writes, dials on
// demand, and retries transient failures with a full disconnect in between.
// An idle session disconnects itself after Config.IdleTimeout.
type Session struct {
	transport Transport
	address   string
	cfg       Config
	log       *logrus.Entry

	// connectMu collapses concurrent connection attempts into one dial.
	connectMu sync.Mutex
	// opMu serializes command execution against this device.
	opMu sync.Mutex

	// mu guards the fields below.
	mu        sync.Mutex
	link      Link
	idleTimer *time.Timer
	msgID     chihiros.MessageID
	notify    func(payload []byte)
}

// NewSession creates a session for one device address. Nothing is dialed
// until the first Send.
func NewSession(t Transport, address string, cfg Config, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		transport: t,
		address:   address,
		cfg:       cfg.withDefaults(),
		log:       log.WithField("device", address),
		msgID:     chihiros.MessageID{High: 0, Low: 0},
	}
}

// Address returns the device address this session manages.
func (s *Session) Address() string {
	return s.address
}

// NextMessageID advances the per-session sequencer and returns the new id.
func (s *Session) NextMessageID() chihiros.MessageID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgID = s.msgID.Next()
	return s.msgID
}

// OnNotification sets the handler for notification payloads from this
// device. The handler survives reconnects. It is called from the carrier's
// read goroutine and must not block.
func (s *Session) OnNotification(fn func(payload []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Connected reports whether a live link exists right now.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link != nil
}

// Send writes the frames in order over a single connection. The whole batch
// shares one attempt: on a transient failure the session disconnects, waits
// Config.RetryBackoff, reconnects, and rewrites the batch from the first
// frame. Unreachable devices and missing characteristics fail immediately.
func (s *Session) Send(ctx context.Context, frames ...chihiros.Frame) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.stopIdleTimer()

	attempts := s.cfg.WriteRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			s.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   lastErr,
			}).Warn("Write failed, reconnecting")
			select {
			case <-time.After(s.cfg.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = s.writeBatch(ctx, frames)
		if lastErr == nil {
			s.armIdleTimer()
			return nil
		}
		s.disconnect()
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("write to %s failed after %d attempts: %w", s.address, attempts, lastErr)
}

func (s *Session) writeBatch(ctx context.Context, frames []chihiros.Frame) error {
	link, err := s.ensureConnected(ctx)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := link.Write(ctx, f); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"cmd":  fmt.Sprintf("0x%02X", f.CmdID()),
			"mode": f.Mode(),
		}).Debug("Frame sent")
	}
	return nil
}

// ensureConnected returns the live link, dialing if necessary.
func (s *Session) ensureConnected(ctx context.Context) (Link, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	link := s.link
	s.mu.Unlock()
	if link != nil {
		return link, nil
	}

	s.log.Debug("Connecting")
	link, err := s.transport.Dial(ctx, s.address)
	if err != nil {
		return nil, err
	}
	if err := link.Subscribe(s.dispatch); err != nil {
		link.Close()
		return nil, err
	}

	s.mu.Lock()
	s.link = link
	s.mu.Unlock()
	s.log.Info("Connected")
	return link, nil
}

func (s *Session) dispatch(payload []byte) {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

// disconnect drops the link. Characteristic handles die with it; the next
// Send dials fresh.
func (s *Session) disconnect() {
	s.mu.Lock()
	link := s.link
	s.link = nil
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.mu.Unlock()

	if link != nil {
		if err := link.Close(); err != nil {
			s.log.WithError(err).Debug("Close failed")
		}
		s.log.Info("Disconnected")
	}
}

func (s *Session) stopIdleTimer() {
	s.mu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.mu.Unlock()
}

func (s *Session) armIdleTimer() {
	s.mu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.cfg.IdleTimeout, s.idleDisconnect)
	s.mu.Unlock()
}

// idleDisconnect fires from the timer goroutine. If a command grabbed the
// operation lock in the meantime, that command owns the link now and will
// rearm the timer itself, so the disconnect is skipped.
func (s *Session) idleDisconnect() {
	if !s.opMu.TryLock() {
		return
	}
	defer s.opMu.Unlock()
	s.log.Debug("Idle timeout reached")
	s.disconnect()
}

// Close disconnects immediately.
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.disconnect()
	return nil
}

// Manager hands out one Session per device address.
type Manager struct {
	transport Transport
	cfg       Config
	log       *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager over one transport.
func NewManager(t Transport, cfg Config, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		transport: t,
		cfg:       cfg,
		log:       log,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the session for an address, creating it on first use.
func (m *Manager) Session(address string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[address]; ok {
		return s
	}
	s := NewSession(m.transport, address, m.cfg, m.log)
	m.sessions[address] = s
	return s
}

// CloseAll disconnects every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
