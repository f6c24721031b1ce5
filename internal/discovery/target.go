package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/some-programs/ouisniff/internal/iface"
)

var (
	ErrNoWirelessInterface = errors.New("no wireless interface found")
	ErrInterfaceNotFound   = errors.New("interface not found")
)

// NoWirelessInterfaceError lists the interfaces that were considered.
type NoWirelessInterfaceError struct {
	Checked []string
}

func (e *NoWirelessInterfaceError) Error() string {
	if len(e.Checked) == 0 {
		return ErrNoWirelessInterface.Error() + " (no interfaces)"
	}
	return fmt.Sprintf("%v among %s", ErrNoWirelessInterface, strings.Join(e.Checked, ", "))
}

func (e *NoWirelessInterfaceError) Unwrap() error { return ErrNoWirelessInterface }

// SelectTarget picks the capture interface. An explicit name wins; otherwise
// the first interface p classifies as wireless is used.
func SelectTarget(infos []iface.Info, p iface.WirelessPolicy, name string) (iface.Info, error) {
	infos = iface.Classify(infos, p)
	if name != "" {
		info, ok := iface.Lookup(infos, name)
		if !ok {
			return iface.Info{}, fmt.Errorf("%w: %q", ErrInterfaceNotFound, name)
		}
		return info, nil
	}
	if w := iface.Wireless(infos); len(w) > 0 {
		return w[0], nil
	}
	checked := make([]string, 0, len(infos))
	for _, info := range infos {
		checked = append(checked, info.Name)
	}
	return iface.Info{}, &NoWirelessInterfaceError{Checked: checked}
}
