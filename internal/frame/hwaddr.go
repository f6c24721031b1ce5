package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidHardwareAddr is returned by ParseHardwareAddr.
var ErrInvalidHardwareAddr = errors.New("invalid hardware address")

// HardwareAddr is a 6 octet link-layer (MAC) address. It is comparable and
// can be used as a map key.
type HardwareAddr [6]byte

// Broadcast is the all-ones Ethernet address.
var Broadcast = HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseHardwareAddr parses a colon or hyphen separated 6 octet address.
// Hex digits are case-insensitive.
func ParseHardwareAddr(s string) (HardwareAddr, error) {
	var hw HardwareAddr
	if !ParseOctets(s, hw[:]) {
		return hw, fmt.Errorf("%w: %q", ErrInvalidHardwareAddr, s)
	}
	return hw, nil
}

// ParseOctets fills dst from exactly len(dst) colon or hyphen separated two
// digit hex octets. It reports whether s was well formed.
func ParseOctets(s string, dst []byte) bool {
	sep := ":"
	if strings.IndexByte(s, ':') < 0 {
		sep = "-"
	}
	oct := strings.Split(s, sep)
	if len(oct) != len(dst) {
		return false
	}
	for i, x := range oct {
		if len(x) != 2 {
			return false
		}
		h, err := strconv.ParseUint(x, 16, 8)
		if err != nil {
			return false
		}
		dst[i] = uint8(h)
	}
	return true
}

// String returns the lower case colon separated form, like net.HardwareAddr.
func (a HardwareAddr) String() string {
	const hexDigit = "0123456789abcdef"
	buf := make([]byte, 0, 17)
	for i, b := range a {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, hexDigit[b>>4], hexDigit[b&0xF])
	}
	return string(buf)
}

// OUI returns the first three octets.
func (a HardwareAddr) OUI() [3]byte {
	return [3]byte{a[0], a[1], a[2]}
}

// Prefix returns the OUI in its canonical directory form, "XX:XX:XX".
func (a HardwareAddr) Prefix() string {
	return fmt.Sprintf("%02X:%02X:%02X", a[0], a[1], a[2])
}

// IsGroup reports whether the I/G bit is set (multicast or broadcast).
func (a HardwareAddr) IsGroup() bool { return a[0]&0x01 != 0 }

// IsLocal reports whether the U/L bit is set (locally administered).
func (a HardwareAddr) IsLocal() bool { return a[0]&0x02 != 0 }

// Scope describes how an address was assigned.
type Scope int

const (
	ScopeUniversal Scope = iota
	ScopeLocal           // locally administered, often randomized
	ScopeGroup           // multicast or broadcast
)

func (s Scope) String() string {
	switch s {
	case ScopeUniversal:
		return "universal"
	case ScopeLocal:
		return "local"
	case ScopeGroup:
		return "group"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Scope classifies the address by its I/G and U/L bits. The group bit wins.
func (a HardwareAddr) Scope() Scope {
	switch {
	case a.IsGroup():
		return ScopeGroup
	case a.IsLocal():
		return ScopeLocal
	default:
		return ScopeUniversal
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a HardwareAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *HardwareAddr) UnmarshalText(b []byte) error {
	hw, err := ParseHardwareAddr(string(b))
	if err != nil {
		return err
	}
	*a = hw
	return nil
}
