package capture

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/some-programs/ouisniff/internal/iface"
)

func init() {
	registerBackend("pcap", openPcap)
}

type pcapHandle struct {
	h *pcap.Handle
}

func openPcap(info iface.Info, cfg Config) (handle, error) {
	h, err := pcap.OpenLive(info.Name, int32(cfg.SnapLen), cfg.Promisc, cfg.Poll)
	if err != nil {
		return nil, err
	}
	if lt := h.LinkType(); lt != layers.LinkTypeEthernet {
		h.Close()
		return nil, fmt.Errorf("%w: link type %s is not Ethernet", ErrNotCapturable, lt)
	}
	return &pcapHandle{h: h}, nil
}

func (p *pcapHandle) read() ([]byte, error) {
	data, _, err := p.h.ReadPacketData()
	if err != nil {
		return nil, pcapReadError(err)
	}
	return data, nil
}

// pcapReadError sorts libpcap read results. Timeouts are the poll tick and
// interrupted reads are retried. Anything else means the handle is unusable.
func pcapReadError(err error) error {
	var nerr pcap.NextError
	switch {
	case errors.As(err, &nerr) && nerr == pcap.NextErrorTimeoutExpired:
		return errPoll
	case errors.Is(err, syscall.EINTR),
		errors.Is(err, syscall.EAGAIN):
		return &Error{Err: err}
	}
	return &Error{Err: err, Fatal: true}
}

func (p *pcapHandle) counters() (Counters, error) {
	st, err := p.h.Stats()
	if err != nil {
		return Counters{}, err
	}
	return Counters{Received: st.PacketsReceived, Dropped: st.PacketsDropped}, nil
}

func (p *pcapHandle) close() error {
	p.h.Close()
	return nil
}
