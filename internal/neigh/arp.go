// Package neigh reads the kernel neighbor table from /proc/net/arp and
// resolves host names for the addresses found there.
package neigh

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/some-programs/ouisniff/internal/frame"
)

// ProcPath is the neighbor table read by Get.
var ProcPath = "/proc/net/arp"

// flagComplete is ATF_COM, set when the hardware address is known.
const flagComplete = 0x2

// Entry is a row of /proc/net/arp.
type Entry struct {
	IPAddress string
	HWType    string
	Flags     string
	HWAddress string
	Mask      string
	Device    string
}

// Complete reports whether the kernel has resolved the hardware address.
func (e Entry) Complete() bool {
	var flags int
	if _, err := fmt.Sscanf(e.Flags, "0x%x", &flags); err != nil {
		return false
	}
	return flags&flagComplete != 0
}

// ReadAll parses neighbor entries from r. The first line is a header.
func ReadAll(r io.Reader) (Entries, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	entries := make(Entries, 0, len(lines))
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		rows := strings.Fields(line)
		if len(rows) < 6 {
			return nil, fmt.Errorf("line %d contains less than 6 rows: '%s'", i+1, line)
		}
		entries = append(entries, Entry{
			IPAddress: rows[0],
			HWType:    rows[1],
			Flags:     rows[2],
			HWAddress: rows[3],
			Mask:      rows[4],
			Device:    rows[5],
		})
	}
	return entries, nil
}

// Get reads the neighbor table from ProcPath.
func Get() (Entries, error) {
	f, err := os.Open(ProcPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}

type Entries []Entry

func (es Entries) FilterDeviceName(name string) Entries {
	filtered := make(Entries, 0, len(es))
	for _, v := range es {
		if v.Device == name {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// IPsByHWAddr groups the IP addresses of complete entries by hardware
// address. Each list is sorted.
func (es Entries) IPsByHWAddr() map[frame.HardwareAddr][]string {
	m := make(map[frame.HardwareAddr][]string, len(es))
	for _, v := range es {
		if !v.Complete() {
			continue
		}
		hw, err := frame.ParseHardwareAddr(v.HWAddress)
		if err != nil {
			continue
		}
		m[hw] = append(m[hw], v.IPAddress)
	}
	for _, ips := range m {
		sort.Strings(ips)
	}
	return m
}
