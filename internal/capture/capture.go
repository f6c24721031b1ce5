// Package capture opens live link-layer captures on a single interface.
//
// A Session hands out raw frames one at a time. Reads block until a frame
// arrives, the context is cancelled or the backend fails; the backend is
// polled at Config.Poll so cancellation is noticed between frames even on an
// idle link.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/some-programs/ouisniff/internal/iface"
)

var (
	ErrPermission     = errors.New("permission denied (capturing usually requires root or CAP_NET_RAW)")
	ErrInterfaceDown  = errors.New("interface is not up")
	ErrNotCapturable  = errors.New("interface can not be captured on")
	ErrUnknownBackend = errors.New("unknown capture backend")
	ErrClosed         = errors.New("session closed")
)

// errPoll is returned by backends when the poll interval expired without a
// frame. It never leaves the package.
var errPoll = errors.New("poll interval expired")

// OpenError is returned by Open.
type OpenError struct {
	Iface   string
	Backend string
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("capture open %s (%s): %v", e.Iface, e.Backend, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Error is a failed read.
type Error struct {
	Iface string
	Err   error
	Fatal bool
}

func (e *Error) Error() string {
	kind := "transient"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("capture %s: %s read error: %v", e.Iface, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the next read may succeed.
func (e *Error) Transient() bool { return !e.Fatal }

// Config configures a capture.
type Config struct {
	Backend string
	SnapLen int
	Promisc bool
	Poll    time.Duration
}

// DefaultConfig is used for zero fields.
var DefaultConfig = Config{
	Backend: "pcap",
	SnapLen: 65536,
	Promisc: true,
	Poll:    500 * time.Millisecond,
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = DefaultConfig.Backend
	}
	if c.SnapLen <= 0 {
		c.SnapLen = DefaultConfig.SnapLen
	}
	if c.Poll <= 0 {
		c.Poll = DefaultConfig.Poll
	}
	return c
}

// Counters are the backend's own receive statistics.
type Counters struct {
	Received int `json:"received"`
	Dropped  int `json:"dropped"`
}

// handle is a backend capture.
type handle interface {
	// read returns the next frame, which is only valid until the next call,
	// or errPoll or a *Error.
	read() ([]byte, error)
	close() error
}

type counterHandle interface {
	counters() (Counters, error)
}

type openFunc func(info iface.Info, cfg Config) (handle, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]openFunc{}
)

func registerBackend(name string, fn openFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = fn
}

// Backends returns the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for k := range backends {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Session is a live capture bound to one interface.
type Session struct {
	iface iface.Info
	cfg   Config

	// mu is held shared by reads and counters, and exclusively by Close,
	// so a close waits for the read in flight.
	mu     sync.RWMutex
	h      handle
	closed bool
}

// Open starts capturing on info.
func Open(info iface.Info, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	backendsMu.RLock()
	open, ok := backends[cfg.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, &OpenError{Iface: info.Name, Backend: cfg.Backend,
			Err: fmt.Errorf("%w %q (have %s)", ErrUnknownBackend, cfg.Backend, strings.Join(Backends(), ", "))}
	}
	if !info.Up {
		return nil, &OpenError{Iface: info.Name, Backend: cfg.Backend, Err: ErrInterfaceDown}
	}
	h, err := open(info, cfg)
	if err != nil {
		return nil, &OpenError{Iface: info.Name, Backend: cfg.Backend, Err: classifyOpenError(err)}
	}
	return &Session{iface: info, cfg: cfg, h: h}, nil
}

// Interface returns the interface the session is bound to.
func (s *Session) Interface() iface.Info {
	return s.iface
}

// Next blocks until a frame is captured. The returned slice is only valid
// until the next call. Errors are ctx.Err(), ErrClosed or *Error.
func (s *Session) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return nil, ErrClosed
		}
		data, err := s.h.read()
		s.mu.RUnlock()
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, errPoll):
			continue
		}
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Iface = s.iface.Name
			return nil, cerr
		}
		return nil, &Error{Iface: s.iface.Name, Err: err, Fatal: true}
	}
}

// Counters returns backend receive statistics if the backend keeps them.
func (s *Session) Counters() (Counters, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Counters{}, false
	}
	ch, ok := s.h.(counterHandle)
	if !ok {
		return Counters{}, false
	}
	c, err := ch.counters()
	if err != nil {
		return Counters{}, false
	}
	return c, true
}

// Close releases the capture. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.h.close()
}

// classifyOpenError maps backend open failures onto the package sentinels.
// libpcap reports most failures as text only.
func classifyOpenError(err error) error {
	if errors.Is(err, ErrPermission) || errors.Is(err, ErrNotCapturable) || errors.Is(err, ErrInterfaceDown) {
		return err
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"),
		strings.Contains(msg, "not permitted"),
		strings.Contains(msg, "access denied"):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	case strings.Contains(msg, "network is down"),
		strings.Contains(msg, "not up"):
		return fmt.Errorf("%w: %w", ErrInterfaceDown, err)
	}
	return fmt.Errorf("%w: %w", ErrNotCapturable, err)
}
