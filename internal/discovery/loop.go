// Package discovery ties capture, frame parsing, vendor resolution and the
// device registry together into a passive discovery loop.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/some-programs/ouisniff/internal/capture"
	"github.com/some-programs/ouisniff/internal/frame"
	"github.com/some-programs/ouisniff/internal/iface"
	"github.com/some-programs/ouisniff/internal/log"
	"github.com/some-programs/ouisniff/internal/registry"
)

// State of a Loop. Stopped is terminal.
type State int32

const (
	StateIdle State = iota
	StateCapturing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrAlreadyStarted is returned when Run is called twice.
var ErrAlreadyStarted = errors.New("discovery loop already started")

// Source yields raw frames. *capture.Session implements it.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Opener opens a Source on an interface.
type Opener func(info iface.Info) (Source, error)

// CaptureOpener opens live captures with cfg.
func CaptureOpener(cfg capture.Config) Opener {
	return func(info iface.Info) (Source, error) {
		s, err := capture.Open(info, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Config configures a Loop. Zero values fall back to live defaults.
type Config struct {
	// Interfaces lists candidate interfaces, iface.List by default.
	Interfaces func() ([]iface.Info, error)
	// Policy classifies wireless interfaces, iface.NameMatch(nil) by default.
	Policy iface.WirelessPolicy
	// IfaceName selects an interface by name instead of by Policy.
	IfaceName string
	// Open opens the capture, live pcap by default.
	Open Opener
	// Resolver labels new sightings. Required.
	Resolver registry.Resolver
	// MaxTransient is the number of consecutive transient capture errors
	// tolerated before the loop stops. 0 means no limit.
	MaxTransient int
	// OnSighting is called for each new sighting, source before destination.
	OnSighting func(registry.Sighting)
	// OnFrame is called for every parsed frame.
	OnFrame func(frame.Frame)
	// StatsSamples is the moving average window of the frame rate, in
	// seconds.
	StatsSamples int
}

// Loop is a single discovery run. It must not be reused after Run returns.
type Loop struct {
	cfg     Config
	started atomic.Bool
	state   atomic.Int32
	stats   *Stats

	mu     sync.RWMutex
	target iface.Info
	reg    *registry.Registry
	src    Source
}

// New returns an idle loop.
func New(cfg Config) *Loop {
	if cfg.Interfaces == nil {
		cfg.Interfaces = iface.List
	}
	if cfg.Policy == nil {
		cfg.Policy = iface.NameMatch(nil)
	}
	if cfg.Open == nil {
		cfg.Open = CaptureOpener(capture.DefaultConfig)
	}
	if cfg.StatsSamples <= 0 {
		cfg.StatsSamples = 8
	}
	return &Loop{cfg: cfg, stats: NewStats(cfg.StatsSamples)}
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Registry returns the loop's registry, nil until capturing has started.
func (l *Loop) Registry() *registry.Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg
}

// Target returns the interface being captured on.
func (l *Loop) Target() (iface.Info, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.target, l.reg != nil
}

// Stats returns the current counters.
func (l *Loop) Stats() StatsSnapshot {
	s := l.stats.snapshot()
	s.State = l.State().String()
	l.mu.RLock()
	s.Iface = l.target.Name
	src := l.src
	l.mu.RUnlock()
	if cs, ok := src.(interface {
		Counters() (capture.Counters, bool)
	}); ok {
		if c, ok := cs.Counters(); ok {
			s.Received, s.Dropped = c.Received, c.Dropped
		}
	}
	return s
}

// Run selects the target interface, opens a capture on it and processes
// frames until ctx is cancelled (nil error) or capture fails (the error).
// Parse errors and transient capture errors are logged and skipped.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if l.cfg.Resolver == nil {
		l.state.Store(int32(StateStopped))
		return errors.New("discovery: no resolver configured")
	}
	defer l.state.Store(int32(StateStopped))

	infos, err := l.cfg.Interfaces()
	if err != nil {
		return err
	}
	target, err := SelectTarget(infos, l.cfg.Policy, l.cfg.IfaceName)
	if err != nil {
		return err
	}
	logger := log.Logger.With().Str("iface", target.Name).Logger()

	src, err := l.cfg.Open(target)
	if err != nil {
		return err
	}
	defer func() {
		l.mu.Lock()
		l.src = nil
		l.mu.Unlock()
		if err := src.Close(); err != nil {
			logger.Warn().Err(err).Msg("close capture")
		}
	}()

	l.mu.Lock()
	l.target = target
	l.reg = registry.New(target.Name)
	l.src = src
	reg := l.reg
	l.mu.Unlock()
	l.state.Store(int32(StateCapturing))
	logger.Info().Msg("capturing")

	tickCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	go l.tick(tickCtx)

	transient := 0
	for {
		if ctx.Err() != nil {
			logger.Info().Msg("capture cancelled")
			return nil
		}
		data, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("capture cancelled")
				return nil
			}
			var cerr *capture.Error
			if errors.As(err, &cerr) && cerr.Transient() {
				transient++
				l.stats.transientError()
				if l.cfg.MaxTransient > 0 && transient > l.cfg.MaxTransient {
					return fmt.Errorf("giving up after %d consecutive transient capture errors: %w", transient, err)
				}
				logger.Debug().Err(err).Int("consecutive", transient).Msg("transient capture error")
				continue
			}
			logger.Error().Err(err).Msg("capture failed")
			return err
		}
		transient = 0

		f, err := frame.Parse(data)
		if err != nil {
			l.stats.parseError()
			logger.Debug().Err(err).Msg("skipping frame")
			continue
		}
		l.stats.frame()
		if l.cfg.OnFrame != nil {
			l.cfg.OnFrame(f)
		}
		l.observe(&logger, reg, f.Source, registry.RoleSource)
		l.observe(&logger, reg, f.Destination, registry.RoleDestination)
	}
}

func (l *Loop) observe(logger *zerolog.Logger, reg *registry.Registry, addr frame.HardwareAddr, role registry.Role) {
	s, ok := reg.ObserveRole(addr, role, l.cfg.Resolver)
	if !ok {
		return
	}
	l.stats.sighting()
	logger.Debug().
		Stringer("hwaddr", addr).
		Str("vendor", s.Vendor).
		Stringer("role", role).
		Msg("new device")
	if l.cfg.OnSighting != nil {
		l.cfg.OnSighting(s)
	}
}

func (l *Loop) tick(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	l.stats.Tick(time.Now())
	for {
		select {
		case now := <-ticker.C:
			l.stats.Tick(now)
		case <-ctx.Done():
			return
		}
	}
}
