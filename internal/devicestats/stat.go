package devicestats

import (
	"fmt"
	"strings"
	"time"

	"github.com/some-programs/ouisniff/internal/frame"
	"github.com/some-programs/ouisniff/internal/registry"
)

// Stat is the status API view of a discovered device.
type Stat struct {
	Seq       int       `json:"seq"`
	HWAddr    string    `json:"hwaddr"`
	Vendor    string    `json:"vendor"`
	Name      string    `json:"name"`
	Scope     string    `json:"scope"`
	Role      string    `json:"role"`
	Iface     string    `json:"iface,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	IPs       []string  `json:"ips,omitempty"`
	Hostnames []string  `json:"hostnames,omitempty"`
}

// FromSighting returns the Stat for s. Name is left for aliases and
// neighbor data to fill in.
func FromSighting(s registry.Sighting) Stat {
	return Stat{
		Seq:       s.Seq,
		HWAddr:    s.Addr.String(),
		Vendor:    s.Vendor,
		Scope:     s.Scope.String(),
		Role:      s.Role.String(),
		Iface:     s.Iface,
		FirstSeen: s.FirstSeen,
	}
}

func (s Stat) HWAddrPrefix() string {
	if len(s.HWAddr) >= len("xx:xx:xx") {
		return s.HWAddr[0:8]
	}
	return ""
}

// IPsFmt joins the IP addresses for display.
func (s Stat) IPsFmt() string {
	return strings.Join(s.IPs, ",")
}

// AgeFmt formats the time since the device was first seen.
func (s Stat) AgeFmt(now time.Time) string {
	if s.FirstSeen.IsZero() {
		return ""
	}
	return fmtAge(now.Sub(s.FirstSeen))
}

func fmtAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
}

// Aliases maps hardware addresses to display names.
type Aliases map[frame.HardwareAddr]string

// ParseAliases parses hwaddr=name pairs.
func ParseAliases(specs []string) (Aliases, error) {
	as := make(Aliases, len(specs))
	for _, v := range specs {
		ss := strings.SplitN(v, "=", 2)
		if len(ss) != 2 || ss[1] == "" {
			return nil, fmt.Errorf("invalid alias specification: %q", v)
		}
		hw, err := frame.ParseHardwareAddr(ss[0])
		if err != nil {
			return nil, fmt.Errorf("invalid alias specification: %q: %w", v, err)
		}
		as[hw] = ss[1]
	}
	return as, nil
}
