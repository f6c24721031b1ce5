// Package iface enumerates the network interfaces the OS reports and
// classifies them for capture.
package iface

import (
	"fmt"
	"net"
	"net/netip"
)

// Info is one interface from a single enumeration. Values are snapshots and
// are not updated.
type Info struct {
	Name         string         `json:"name"`
	Index        int            `json:"index"`
	MTU          int            `json:"mtu"`
	HardwareAddr string         `json:"hwaddr,omitempty"`
	IPv4         []netip.Prefix `json:"ipv4"`
	IPv6         []netip.Prefix `json:"ipv6"`
	Up           bool           `json:"is_up"`
	Loopback     bool           `json:"is_loopback"`
	Multicast    bool           `json:"is_multicast"`
	Broadcast    bool           `json:"is_broadcast"`
	PointToPoint bool           `json:"is_point_to_point"`
	Running      bool           `json:"is_running"`
	Wireless     bool           `json:"is_wifi"`
}

// PlatformQueryError is returned when the OS refuses an interface query.
type PlatformQueryError struct {
	Op  string
	Err error
}

func (e *PlatformQueryError) Error() string {
	return fmt.Sprintf("interface enumeration: %s: %v", e.Op, e.Err)
}

func (e *PlatformQueryError) Unwrap() error { return e.Err }

// OS queries, replaced in tests.
var (
	netInterfaces  = net.Interfaces
	interfaceAddrs = func(ifi net.Interface) ([]net.Addr, error) { return ifi.Addrs() }
)

// List returns a snapshot of all interfaces in the order the OS reports them.
// Wireless is left false; see Classify.
func List() ([]Info, error) {
	ifis, err := netInterfaces()
	if err != nil {
		return nil, &PlatformQueryError{Op: "list interfaces", Err: err}
	}
	infos := make([]Info, 0, len(ifis))
	seen := make(map[string]bool, len(ifis))
	for _, ifi := range ifis {
		if ifi.Name == "" || seen[ifi.Name] {
			continue
		}
		seen[ifi.Name] = true
		addrs, err := interfaceAddrs(ifi)
		if err != nil {
			return nil, &PlatformQueryError{Op: "addresses of " + ifi.Name, Err: err}
		}
		infos = append(infos, newInfo(ifi, addrs))
	}
	return infos, nil
}

func newInfo(ifi net.Interface, addrs []net.Addr) Info {
	info := Info{
		Name:         ifi.Name,
		Index:        ifi.Index,
		MTU:          ifi.MTU,
		IPv4:         []netip.Prefix{},
		IPv6:         []netip.Prefix{},
		Up:           ifi.Flags&net.FlagUp != 0,
		Loopback:     ifi.Flags&net.FlagLoopback != 0,
		Multicast:    ifi.Flags&net.FlagMulticast != 0,
		Broadcast:    ifi.Flags&net.FlagBroadcast != 0,
		PointToPoint: ifi.Flags&net.FlagPointToPoint != 0,
		Running:      ifi.Flags&net.FlagRunning != 0,
	}
	if len(ifi.HardwareAddr) > 0 {
		info.HardwareAddr = ifi.HardwareAddr.String()
	}
	for _, a := range addrs {
		pfx, ok := addrPrefix(a)
		if !ok {
			continue
		}
		if pfx.Addr().Is4() {
			info.IPv4 = append(info.IPv4, pfx)
		} else {
			info.IPv6 = append(info.IPv6, pfx)
		}
	}
	return info
}

func addrPrefix(a net.Addr) (netip.Prefix, bool) {
	switch v := a.(type) {
	case *net.IPNet:
		ip, ok := netip.AddrFromSlice(v.IP)
		if !ok {
			return netip.Prefix{}, false
		}
		ones, bits := v.Mask.Size()
		ip = ip.Unmap()
		if ip.Is4() && bits == 128 {
			ones -= 96
		}
		return netip.PrefixFrom(ip, ones), true
	case *net.IPAddr:
		ip, ok := netip.AddrFromSlice(v.IP)
		if !ok {
			return netip.Prefix{}, false
		}
		ip = ip.Unmap()
		return netip.PrefixFrom(ip, ip.BitLen()), true
	}
	return netip.Prefix{}, false
}

// Truncate returns the first n interfaces in enumeration order. n <= 0 means
// no limit.
func Truncate(infos []Info, n int) []Info {
	if n <= 0 || len(infos) <= n {
		return infos
	}
	return infos[:n]
}

// Lookup returns the interface named name.
func Lookup(infos []Info, name string) (Info, bool) {
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}
	return Info{}, false
}
