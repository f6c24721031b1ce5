// Package registry records the first sighting of every hardware address seen
// by a discovery loop.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/some-programs/ouisniff/internal/frame"
)

// Resolver turns an address into a vendor label. It must not fail; unknown
// prefixes get a placeholder label.
type Resolver interface {
	Resolve(frame.HardwareAddr) string
}

// Role is the header field an address was first observed in.
type Role int

const (
	RoleUnspecified Role = iota
	RoleSource
	RoleDestination
)

func (r Role) String() string {
	switch r {
	case RoleUnspecified:
		return "unspecified"
	case RoleSource:
		return "source"
	case RoleDestination:
		return "destination"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Sighting is created the first time an address is observed and never
// changes afterwards.
type Sighting struct {
	Seq       int                `json:"seq"`
	Addr      frame.HardwareAddr `json:"hwaddr"`
	Vendor    string             `json:"vendor"`
	Scope     frame.Scope        `json:"scope"`
	Role      Role               `json:"role"`
	Iface     string             `json:"iface,omitempty"`
	FirstSeen time.Time          `json:"first_seen"`
}

func (s Sighting) String() string {
	return fmt.Sprintf("%s: %s", s.Addr, s.Vendor)
}

// Registry deduplicates sightings by address. Observe is the only mutation.
// It is safe for one writer and any number of concurrent readers.
type Registry struct {
	iface string
	now   func() time.Time

	mu    sync.RWMutex
	index map[frame.HardwareAddr]int
	seen  []Sighting
}

// New returns an empty registry whose sightings are tagged with ifaceName.
func New(ifaceName string) *Registry {
	return &Registry{
		iface: ifaceName,
		now:   time.Now,
		index: make(map[frame.HardwareAddr]int),
	}
}

// Observe is ObserveRole with RoleUnspecified.
func (r *Registry) Observe(addr frame.HardwareAddr, res Resolver) (Sighting, bool) {
	return r.ObserveRole(addr, RoleUnspecified, res)
}

// ObserveRole records addr if it has not been seen before and returns the new
// sighting and true. Known addresses return false.
func (r *Registry) ObserveRole(addr frame.HardwareAddr, role Role, res Resolver) (Sighting, bool) {
	r.mu.RLock()
	_, ok := r.index[addr]
	r.mu.RUnlock()
	if ok {
		return Sighting{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[addr]; ok {
		return Sighting{}, false
	}
	s := Sighting{
		Seq:       len(r.seen) + 1,
		Addr:      addr,
		Vendor:    res.Resolve(addr),
		Scope:     addr.Scope(),
		Role:      role,
		Iface:     r.iface,
		FirstSeen: r.now(),
	}
	r.index[addr] = len(r.seen)
	r.seen = append(r.seen, s)
	return s, true
}

// Get returns the sighting for addr.
func (r *Registry) Get(addr frame.HardwareAddr) (Sighting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[addr]
	if !ok {
		return Sighting{}, false
	}
	return r.seen[i], true
}

// Len returns the number of distinct addresses seen.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seen)
}

// Snapshot returns a copy of all sightings in discovery order.
func (r *Registry) Snapshot() []Sighting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sighting, len(r.seen))
	copy(out, r.seen)
	return out
}
