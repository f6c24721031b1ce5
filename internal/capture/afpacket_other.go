//go:build !linux

package capture

import (
	"fmt"
	"runtime"

	"github.com/some-programs/ouisniff/internal/iface"
)

func init() {
	registerBackend("afpacket", func(iface.Info, Config) (handle, error) {
		return nil, fmt.Errorf("%w: afpacket is not available on %s", ErrNotCapturable, runtime.GOOS)
	})
}
