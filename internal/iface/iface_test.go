package iface

import (
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func stubOS(t *testing.T, ifis []net.Interface, addrs map[string][]net.Addr) {
	t.Helper()
	origIfis, origAddrs := netInterfaces, interfaceAddrs
	t.Cleanup(func() { netInterfaces, interfaceAddrs = origIfis, origAddrs })
	netInterfaces = func() ([]net.Interface, error) { return ifis, nil }
	interfaceAddrs = func(ifi net.Interface) ([]net.Addr, error) { return addrs[ifi.Name], nil }
}

func ipnet(s string) *net.IPNet {
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestList(t *testing.T) {
	stubOS(t,
		[]net.Interface{
			{Index: 1, Name: "lo", MTU: 65536, Flags: net.FlagUp | net.FlagLoopback | net.FlagRunning},
			{Index: 2, Name: "eth0", MTU: 1500, HardwareAddr: net.HardwareAddr{0, 0x1b, 0x63, 1, 2, 3},
				Flags: net.FlagUp | net.FlagBroadcast | net.FlagMulticast | net.FlagRunning},
			{Index: 3, Name: "wlan0", MTU: 1500, Flags: net.FlagBroadcast | net.FlagMulticast},
			{Index: 4, Name: "tun0", MTU: 1400, Flags: net.FlagUp | net.FlagPointToPoint},
			{Index: 5, Name: "eth0", MTU: 1500},
		},
		map[string][]net.Addr{
			"lo":   {ipnet("127.0.0.1/8"), ipnet("::1/128")},
			"eth0": {ipnet("192.168.1.42/24"), ipnet("fe80::1/64"), ipnet("10.0.0.2/8")},
		},
	)

	is := is.New(t)
	infos, err := List()
	is.NoErr(err)
	is.Equal(len(infos), 4) // duplicate name dropped

	seen := map[string]bool{}
	for _, info := range infos {
		is.True(info.Name != "")
		is.True(!seen[info.Name])
		seen[info.Name] = true
	}

	lo := infos[0]
	is.True(lo.Up && lo.Loopback && lo.Running)
	is.True(!lo.Broadcast)
	is.Equal(len(lo.IPv4), 1)
	is.Equal(lo.IPv4[0], netip.MustParsePrefix("127.0.0.1/8"))
	is.Equal(lo.IPv6[0].String(), "::1/128")

	eth := infos[1]
	is.Equal(eth.HardwareAddr, "00:1b:63:01:02:03")
	is.True(eth.Broadcast && eth.Multicast && !eth.Loopback)
	is.Equal(len(eth.IPv4), 2)
	is.Equal(eth.IPv4[0].String(), "192.168.1.42/24") // reported order
	is.Equal(eth.IPv4[1].String(), "10.0.0.2/8")
	is.Equal(eth.IPv6[0].String(), "fe80::1/64")

	wlan := infos[2]
	is.True(!wlan.Up)
	is.True(!wlan.Wireless) // not classified yet
	is.Equal(len(wlan.IPv4), 0)

	is.True(infos[3].PointToPoint)
}

func TestListError(t *testing.T) {
	is := is.New(t)
	orig := netInterfaces
	defer func() { netInterfaces = orig }()
	netInterfaces = func() ([]net.Interface, error) {
		return nil, os.ErrPermission
	}
	_, err := List()
	var perr *PlatformQueryError
	is.True(errors.As(err, &perr))
	is.True(errors.Is(err, os.ErrPermission))
}

func TestTruncate(t *testing.T) {
	is := is.New(t)
	infos := []Info{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	is.Equal(len(Truncate(infos, 2)), 2)
	is.Equal(Truncate(infos, 2)[1].Name, "b")
	is.Equal(len(Truncate(infos, 5)), 3)
	is.Equal(len(Truncate(infos, 0)), 3)
}

func TestClassify(t *testing.T) {
	infos := []Info{{Name: "eth0"}, {Name: "wlan0"}, {Name: "wlan1"}, {Name: "wlp2s0"}}

	t.Run("default names", func(t *testing.T) {
		is := is.New(t)
		got := Classify(infos, NameMatch(nil))
		is.Equal(len(Wireless(got)), 1)
		is.Equal(Wireless(got)[0].Name, "wlan0")
		is.True(!infos[1].Wireless) // input untouched
	})

	t.Run("exact match only", func(t *testing.T) {
		is := is.New(t)
		got := Classify(infos, NameMatch{"wlp2s0", "wlan"})
		w := Wireless(got)
		is.Equal(len(w), 1)
		is.Equal(w[0].Name, "wlp2s0")
	})

	t.Run("func", func(t *testing.T) {
		is := is.New(t)
		got := Classify(infos, WirelessFunc(func(i Info) bool { return i.Name != "eth0" }))
		is.Equal(len(Wireless(got)), 3)
	})

	t.Run("sysfs", func(t *testing.T) {
		is := is.New(t)
		root := t.TempDir()
		is.NoErr(os.MkdirAll(filepath.Join(root, "wlp2s0", "wireless"), 0o755))
		is.NoErr(os.MkdirAll(filepath.Join(root, "wlan1", "phy80211"), 0o755))
		is.NoErr(os.MkdirAll(filepath.Join(root, "eth0"), 0o755))
		got := Wireless(Classify(infos, SysfsWireless{Root: root}))
		is.Equal(len(got), 2)
		is.Equal(got[0].Name, "wlan1")
		is.Equal(got[1].Name, "wlp2s0")
	})
}

func TestLookup(t *testing.T) {
	is := is.New(t)
	infos := []Info{{Name: "eth0"}, {Name: "wlan0", Up: true}}
	info, ok := Lookup(infos, "wlan0")
	is.True(ok)
	is.True(info.Up)
	_, ok = Lookup(infos, "nope")
	is.True(!ok)
}
