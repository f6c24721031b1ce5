// Package frame decodes the Ethernet II / 802.3 header of captured frames.
//
// Only the addresses and the type/length field are read; higher layers are
// left untouched in Payload.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket/layers"
)

// HeaderLen is the size of an Ethernet header: destination, source and
// type/length.
const HeaderLen = 14

// ParseError is returned for captures that can't hold an Ethernet header.
type ParseError struct {
	Len int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("frame too short: %d bytes, need %d", e.Len, HeaderLen)
}

// Frame is a view into one captured packet. Payload aliases the capture
// buffer and must not be retained after the next read.
type Frame struct {
	Destination HardwareAddr
	Source      HardwareAddr
	EtherType   uint16
	Payload     []byte
	Len         int
}

// Parse decodes the Ethernet header at the start of data.
func Parse(data []byte) (Frame, error) {
	if len(data) < HeaderLen {
		return Frame{}, &ParseError{Len: len(data)}
	}
	var f Frame
	copy(f.Destination[:], data[0:6])
	copy(f.Source[:], data[6:12])
	f.EtherType = binary.BigEndian.Uint16(data[12:14])
	f.Payload = data[HeaderLen:]
	f.Len = len(data)
	return f, nil
}

// EtherTypeName returns a short name for the type/length field. Values below
// 0x0600 are 802.3 length fields.
func (f Frame) EtherTypeName() string {
	if f.EtherType < 0x0600 {
		return fmt.Sprintf("802.3(len=%d)", f.EtherType)
	}
	return layers.EthernetType(f.EtherType).String()
}

func (f Frame) String() string {
	return fmt.Sprintf("%s <- %s %s %d", f.Destination, f.Source, f.EtherTypeName(), f.Len)
}
