package iface

import (
	"os"
	"path/filepath"
)

// WirelessPolicy decides whether an interface is wireless.
type WirelessPolicy interface {
	IsWireless(Info) bool
}

// WirelessFunc adapts a function to WirelessPolicy.
type WirelessFunc func(Info) bool

func (f WirelessFunc) IsWireless(info Info) bool { return f(info) }

// DefaultWirelessNames is the name set used by NameMatch when none is
// configured.
var DefaultWirelessNames = []string{"wlan0"}

// NameMatch treats an interface as wireless when its name is exactly one of
// the listed names. It does not look at the hardware.
type NameMatch []string

func (m NameMatch) IsWireless(info Info) bool {
	names := []string(m)
	if len(names) == 0 {
		names = DefaultWirelessNames
	}
	for _, n := range names {
		if info.Name == n {
			return true
		}
	}
	return false
}

// SysfsWireless asks the Linux kernel: an interface is wireless when
// <Root>/<name>/wireless or <Root>/<name>/phy80211 exists. Root defaults to
// /sys/class/net. On other platforms nothing matches.
type SysfsWireless struct {
	Root string
}

func (s SysfsWireless) IsWireless(info Info) bool {
	root := s.Root
	if root == "" {
		root = "/sys/class/net"
	}
	for _, p := range []string{"wireless", "phy80211"} {
		if _, err := os.Stat(filepath.Join(root, info.Name, p)); err == nil {
			return true
		}
	}
	return false
}

// Classify returns copies of infos with Wireless set by p.
func Classify(infos []Info, p WirelessPolicy) []Info {
	out := make([]Info, len(infos))
	for i, info := range infos {
		info.Wireless = p.IsWireless(info)
		out[i] = info
	}
	return out
}

// Wireless returns the wireless interfaces of an already classified list.
func Wireless(infos []Info) []Info {
	var out []Info
	for _, info := range infos {
		if info.Wireless {
			out = append(out, info)
		}
	}
	return out
}
