package capture

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/matryer/is"
	"golang.org/x/sys/unix"
)

func TestAFPacketReadError(t *testing.T) {
	is := is.New(t)
	is.True(errors.Is(afpacketReadError(os.ErrDeadlineExceeded), errPoll))

	for _, err := range []error{unix.EINTR, unix.EAGAIN, unix.ENOBUFS} {
		var cerr *Error
		is.True(errors.As(afpacketReadError(fmt.Errorf("recvfrom: %w", err)), &cerr))
		is.True(cerr.Transient()) // interrupted or out of buffer space
	}

	for _, err := range []error{unix.ENODEV, unix.ENETDOWN, unix.EIO, errors.New("something odd")} {
		var cerr *Error
		is.True(errors.As(afpacketReadError(err), &cerr))
		is.True(cerr.Fatal)
		is.True(errors.Is(cerr, err))
	}
}
