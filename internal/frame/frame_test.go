package frame

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func header(dst, src HardwareAddr, etherType uint16) []byte {
	b := make([]byte, 0, HeaderLen)
	b = append(b, dst[:]...)
	b = append(b, src[:]...)
	return append(b, byte(etherType>>8), byte(etherType))
}

func TestParse(t *testing.T) {
	dst := HardwareAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	src := HardwareAddr{0xaa, 0xbb, 0xcc, 0x11, 0x22, 0x33}

	t.Run("short", func(t *testing.T) {
		is := is.New(t)
		data := header(dst, src, 0x0800)
		for n := 0; n < HeaderLen; n++ {
			f, err := Parse(data[:n])
			var perr *ParseError
			is.True(errors.As(err, &perr))
			is.Equal(perr.Len, n)
			is.Equal(f, Frame{})
		}
	})

	t.Run("header only", func(t *testing.T) {
		is := is.New(t)
		f, err := Parse(header(dst, src, 0x0806))
		is.NoErr(err)
		is.Equal(f.Destination, dst)
		is.Equal(f.Source, src)
		is.Equal(f.EtherType, uint16(0x0806))
		is.Equal(len(f.Payload), 0)
		is.Equal(f.Len, HeaderLen)
	})

	t.Run("payload does not matter", func(t *testing.T) {
		is := is.New(t)
		for _, n := range []int{1, 46, 1500, 9000} {
			data := append(header(dst, src, 0x86dd), make([]byte, n)...)
			f, err := Parse(data)
			is.NoErr(err)
			is.Equal(f.Destination, dst)
			is.Equal(f.Source, src)
			is.Equal(len(f.Payload), n)
		}
	})

	t.Run("vlan tag is not decoded", func(t *testing.T) {
		is := is.New(t)
		f, err := Parse(header(dst, src, 0x8100))
		is.NoErr(err)
		is.Equal(f.Source, src)
		is.Equal(f.EtherType, uint16(0x8100))
	})
}

func TestEtherTypeName(t *testing.T) {
	is := is.New(t)
	is.Equal(Frame{EtherType: 0x0806}.EtherTypeName(), "ARP")
	is.Equal(Frame{EtherType: 0x0800}.EtherTypeName(), "IPv4")
	is.Equal(Frame{EtherType: 46}.EtherTypeName(), "802.3(len=46)")
}

func TestFrameString(t *testing.T) {
	is := is.New(t)
	f, err := Parse(header(Broadcast, HardwareAddr{0xaa, 0xbb, 0xcc, 0, 0, 1}, 0x0806))
	is.NoErr(err)
	s := f.String()
	is.True(strings.HasPrefix(s, "ff:ff:ff:ff:ff:ff <- aa:bb:cc:00:00:01"))
	is.True(strings.HasSuffix(s, " 14"))
}

func TestParseHardwareAddr(t *testing.T) {
	want := HardwareAddr{0xaa, 0xbb, 0xcc, 0x11, 0x22, 0x33}

	for _, s := range []string{
		"aa:bb:cc:11:22:33",
		"AA:BB:CC:11:22:33",
		"Aa-bB-cc-11-22-33",
	} {
		t.Run(s, func(t *testing.T) {
			is := is.New(t)
			hw, err := ParseHardwareAddr(s)
			is.NoErr(err)
			is.Equal(hw, want)
			is.Equal(hw.String(), "aa:bb:cc:11:22:33")
			is.Equal(hw.Prefix(), "AA:BB:CC")
		})
	}

	for _, s := range []string{
		"",
		"aa:bb:cc",
		"aa:bb:cc:11:22:33:44",
		"aa:bb:cc:11:22:3",
		"aa:bb:cc:11:22:zz",
		"aabb.cc11.2233",
	} {
		t.Run("invalid "+s, func(t *testing.T) {
			is := is.New(t)
			_, err := ParseHardwareAddr(s)
			is.True(errors.Is(err, ErrInvalidHardwareAddr))
		})
	}
}

func TestParseOctets(t *testing.T) {
	is := is.New(t)
	var p [3]byte
	is.True(ParseOctets("00-1b-63", p[:]))
	is.Equal(p, [3]byte{0x00, 0x1b, 0x63})
	is.True(!ParseOctets("00:1b:63:00", p[:]))
	is.True(!ParseOctets("001b63", p[:]))
}

func TestScope(t *testing.T) {
	is := is.New(t)
	is.Equal(Broadcast.Scope(), ScopeGroup)
	is.Equal(HardwareAddr{0x01, 0x00, 0x5e, 0, 0, 1}.Scope(), ScopeGroup)
	is.Equal(HardwareAddr{0x02, 0x42, 0xac, 0x11, 0, 2}.Scope(), ScopeLocal)
	is.Equal(HardwareAddr{0x00, 0x1b, 0x63, 0, 0, 1}.Scope(), ScopeUniversal)
	is.Equal(ScopeLocal.String(), "local")
}
