package neigh

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/some-programs/ouisniff/internal/frame"
	"github.com/some-programs/ouisniff/internal/log"
)

// Neighbor is what the kernel and DNS know about a hardware address.
type Neighbor struct {
	IPs       []string
	Hostnames []string
}

// Table keeps the latest neighbor table for one device together with
// resolved host names.
type Table struct {
	Device string
	// Entries defaults to Get.
	Entries func() (Entries, error)

	mu    sync.RWMutex
	ips   map[frame.HardwareAddr][]string
	names map[string]string
}

func NewTable(device string) *Table {
	return &Table{
		Device:  device,
		Entries: Get,
		ips:     make(map[frame.HardwareAddr][]string),
		names:   make(map[string]string),
	}
}

// Update rereads the neighbor table.
func (t *Table) Update() error {
	es, err := t.Entries()
	if err != nil {
		return err
	}
	if t.Device != "" {
		es = es.FilterDeviceName(t.Device)
	}
	ips := es.IPsByHWAddr()
	t.mu.Lock()
	t.ips = ips
	t.mu.Unlock()
	return nil
}

// UpdateNames resolves host names for every known IP address. Lookup
// failures are logged and leave the previous name in place.
func (t *Table) UpdateNames(ctx context.Context) {
	t.mu.RLock()
	var ips []string
	for _, v := range t.ips {
		ips = append(ips, v...)
	}
	t.mu.RUnlock()

	names := make(map[string]string, len(ips))
	for _, ip := range ips {
		if ctx.Err() != nil {
			return
		}
		name, err := ResolveHostname(ctx, ip)
		if err != nil {
			log.Debug().Err(err).Str("ip", ip).Msg("resolve hostname")
			continue
		}
		names[ip] = name
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range names {
		if v == "" {
			delete(t.names, k)
			continue
		}
		t.names[k] = v
	}
}

// Lookup returns the neighbor data for addr.
func (t *Table) Lookup(addr frame.HardwareAddr) Neighbor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ips := t.ips[addr]
	if len(ips) == 0 {
		return Neighbor{}
	}
	n := Neighbor{IPs: append([]string(nil), ips...)}
	for _, ip := range ips {
		if name, ok := t.names[ip]; ok {
			n.Hostnames = append(n.Hostnames, name)
		}
	}
	sort.Strings(n.Hostnames)
	return n
}

// Run refreshes the table every arpDelay and the host names every dnsDelay
// until ctx is done.
func (t *Table) Run(ctx context.Context, arpDelay, dnsDelay time.Duration) {
	update := func() {
		if err := t.Update(); err != nil {
			log.Info().Err(err).Msg("update neighbor table failed")
		}
	}
	update()
	t.UpdateNames(ctx)

	arpTicker := time.NewTicker(arpDelay)
	defer arpTicker.Stop()
	dnsTicker := time.NewTicker(dnsDelay)
	defer dnsTicker.Stop()
	for {
		select {
		case <-arpTicker.C:
			update()
		case <-dnsTicker.C:
			t.UpdateNames(ctx)
		case <-ctx.Done():
			return
		}
	}
}
