package devicestats

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/some-programs/ouisniff/internal/frame"
	"github.com/some-programs/ouisniff/internal/registry"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testStats() Stats {
	return Stats{
		{Seq: 3, HWAddr: "dd:ee:ff:00:00:02", Vendor: "unknown device: DD:EE:FF", FirstSeen: t0.Add(2 * time.Second)},
		{Seq: 1, HWAddr: "aa:bb:cc:00:00:01", Vendor: "Acme Corp", Name: "nas", FirstSeen: t0},
		{Seq: 2, HWAddr: "00:1b:63:00:00:01", Vendor: "Apple, Inc.", FirstSeen: t0.Add(time.Second)},
	}
}

func hwaddrs(s Stats) []string {
	var res []string
	for _, v := range s {
		res = append(res, v.HWAddr)
	}
	return res
}

func TestOrder(t *testing.T) {
	tests := []struct {
		orderBy string
		want    []string
	}{
		{"", []string{"aa:bb:cc:00:00:01", "00:1b:63:00:00:01", "dd:ee:ff:00:00:02"}},
		{"first_seen", []string{"aa:bb:cc:00:00:01", "00:1b:63:00:00:01", "dd:ee:ff:00:00:02"}},
		{"hwaddr", []string{"00:1b:63:00:00:01", "aa:bb:cc:00:00:01", "dd:ee:ff:00:00:02"}},
		{"vendor", []string{"aa:bb:cc:00:00:01", "00:1b:63:00:00:01", "dd:ee:ff:00:00:02"}},
		{"name", []string{"aa:bb:cc:00:00:01", "00:1b:63:00:00:01", "dd:ee:ff:00:00:02"}},
		{"bogus", []string{"aa:bb:cc:00:00:01", "00:1b:63:00:00:01", "dd:ee:ff:00:00:02"}},
	}
	for _, tt := range tests {
		t.Run(tt.orderBy, func(t *testing.T) {
			is := is.New(t)
			s := testStats()
			s.Order(tt.orderBy)
			is.Equal(hwaddrs(s), tt.want)
		})
	}
}

func TestFilter(t *testing.T) {
	is := is.New(t)
	s := testStats()
	is.Equal(len(s.Filter(nil, nil)), 3)
	is.Equal(hwaddrs(s.Filter([]string{"AA:BB:CC:00:00:01"}, nil)), []string{"aa:bb:cc:00:00:01"})
	is.Equal(hwaddrs(s.Filter(nil, []string{"apple, inc."})), []string{"00:1b:63:00:00:01"})
	is.Equal(len(s.Filter([]string{"00:00:00:00:00:00"}, []string{"Nobody"})), 0)
}

func TestFromSighting(t *testing.T) {
	is := is.New(t)
	st := FromSighting(registry.Sighting{
		Seq:       4,
		Addr:      frame.Broadcast,
		Vendor:    "unknown device: FF:FF:FF",
		Scope:     frame.ScopeGroup,
		Role:      registry.RoleDestination,
		Iface:     "wlan0",
		FirstSeen: t0,
	})
	is.Equal(st.HWAddr, "ff:ff:ff:ff:ff:ff")
	is.Equal(st.HWAddrPrefix(), "ff:ff:ff")
	is.Equal(st.Scope, "group")
	is.Equal(st.Role, "destination")
	is.Equal(st.AgeFmt(t0.Add(90*time.Second)), "1m30s")
	is.Equal(st.AgeFmt(t0.Add(2*time.Hour+5*time.Minute)), "2h05m")
	is.Equal(st.AgeFmt(t0), "now")
}

func TestParseAliases(t *testing.T) {
	is := is.New(t)
	as, err := ParseAliases([]string{"AA:BB:CC:00:00:01=nas", "00-1b-63-00-00-01=phone=old"})
	is.NoErr(err)
	is.Equal(len(as), 2)
	is.Equal(as[frame.HardwareAddr{0xaa, 0xbb, 0xcc, 0, 0, 1}], "nas")
	is.Equal(as[frame.HardwareAddr{0, 0x1b, 0x63, 0, 0, 1}], "phone=old")

	for _, bad := range []string{"nas", "aa:bb:cc:00:00:01=", "zz=nas"} {
		_, err := ParseAliases([]string{bad})
		is.True(err != nil)
	}
}
