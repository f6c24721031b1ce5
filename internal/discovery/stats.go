package discovery

import (
	"sync"
	"time"

	"github.com/mxmCherry/movavg"
)

// Stats counts what the loop has processed.
type Stats struct {
	mu              sync.Mutex
	frames          uint64
	parseErrors     uint64
	transientErrors uint64
	sightings       uint64

	tickFrames uint64
	tickAt     time.Time
	fps        movavg.MA
}

// NewStats averages the frame rate over samples ticks.
func NewStats(samples int) *Stats {
	if samples <= 0 {
		samples = 1
	}
	return &Stats{fps: movavg.NewSMA(samples)}
}

func (s *Stats) frame() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

func (s *Stats) parseError() {
	s.mu.Lock()
	s.parseErrors++
	s.mu.Unlock()
}

func (s *Stats) transientError() {
	s.mu.Lock()
	s.transientErrors++
	s.mu.Unlock()
}

func (s *Stats) sighting() {
	s.mu.Lock()
	s.sightings++
	s.mu.Unlock()
}

// Tick adds a frames per second sample covering the time since the last
// tick. The first tick only sets the baseline.
func (s *Stats) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tickAt.IsZero() {
		s.tickAt = now
		s.tickFrames = s.frames
		return
	}
	dur := now.Sub(s.tickAt)
	if dur <= 0 {
		return
	}
	s.fps.Add(float64(s.frames-s.tickFrames) / dur.Seconds())
	s.tickAt = now
	s.tickFrames = s.frames
}

// StatsSnapshot is a point in time copy of Stats.
type StatsSnapshot struct {
	State           string  `json:"state"`
	Iface           string  `json:"iface,omitempty"`
	Frames          uint64  `json:"frames"`
	ParseErrors     uint64  `json:"parse_errors"`
	TransientErrors uint64  `json:"transient_errors"`
	Sightings       uint64  `json:"sightings"`
	FramesPerSecond float64 `json:"fps"`
	Received        int     `json:"received,omitempty"`
	Dropped         int     `json:"dropped,omitempty"`
}

func (s *Stats) snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fps := s.fps.Avg()
	if fps < 0.0001 {
		fps = 0
	}
	return StatsSnapshot{
		Frames:          s.frames,
		ParseErrors:     s.parseErrors,
		TransientErrors: s.transientErrors,
		Sightings:       s.sightings,
		FramesPerSecond: fps,
	}
}
