package capture

import (
	"errors"
	"net"
	"os"
	"time"

	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"

	"github.com/some-programs/ouisniff/internal/iface"
)

func init() {
	registerBackend("afpacket", openAFPacket)
}

type afpacketHandle struct {
	conn *packet.Conn
	buf  []byte
	poll time.Duration
}

func openAFPacket(info iface.Info, cfg Config) (handle, error) {
	ifi, err := net.InterfaceByName(info.Name)
	if err != nil {
		return nil, err
	}
	conn, err := packet.Listen(ifi, packet.Raw, unix.ETH_P_ALL, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Promisc {
		if err := conn.SetPromiscuous(true); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return &afpacketHandle{
		conn: conn,
		buf:  make([]byte, cfg.SnapLen),
		poll: cfg.Poll,
	}, nil
}

func (a *afpacketHandle) read() ([]byte, error) {
	if err := a.conn.SetReadDeadline(time.Now().Add(a.poll)); err != nil {
		return nil, &Error{Err: err, Fatal: true}
	}
	n, _, err := a.conn.ReadFrom(a.buf)
	if err != nil {
		return nil, afpacketReadError(err)
	}
	return a.buf[:n], nil
}

// afpacketReadError sorts socket read results. Only interrupted reads and
// full buffers are retried.
func afpacketReadError(err error) error {
	var nerr net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &nerr) && nerr.Timeout():
		return errPoll
	case errors.Is(err, unix.EINTR),
		errors.Is(err, unix.EAGAIN),
		errors.Is(err, unix.ENOBUFS):
		return &Error{Err: err}
	}
	return &Error{Err: err, Fatal: true}
}

func (a *afpacketHandle) counters() (Counters, error) {
	st, err := a.conn.Stats()
	if err != nil {
		return Counters{}, err
	}
	return Counters{Received: int(st.Packets), Dropped: int(st.Drops)}, nil
}

func (a *afpacketHandle) close() error {
	return a.conn.Close()
}
