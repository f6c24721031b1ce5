package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matryer/is"

	"github.com/some-programs/ouisniff/internal/devicestats"
	"github.com/some-programs/ouisniff/internal/discovery"
	"github.com/some-programs/ouisniff/internal/frame"
	"github.com/some-programs/ouisniff/internal/iface"
	"github.com/some-programs/ouisniff/internal/log"
	"github.com/some-programs/ouisniff/internal/neigh"
	"github.com/some-programs/ouisniff/internal/registry"
)

func init() {
	log.SetDiscardLogger()
}

type resolverFunc func(frame.HardwareAddr) string

func (f resolverFunc) Resolve(a frame.HardwareAddr) string { return f(a) }

var vendors = resolverFunc(func(a frame.HardwareAddr) string {
	if a.Prefix() == "AA:BB:CC" {
		return "Acme Corp"
	}
	return "unknown device: " + a.Prefix()
})

type fakeDiscovery struct {
	reg   *registry.Registry
	stats discovery.StatsSnapshot
}

func (f *fakeDiscovery) Registry() *registry.Registry   { return f.reg }
func (f *fakeDiscovery) Stats() discovery.StatsSnapshot { return f.stats }

var (
	s1 = frame.HardwareAddr{0xaa, 0xbb, 0xcc, 0, 0, 1}
	s2 = frame.HardwareAddr{0xdc, 0xee, 0xff, 0, 0, 2}
)

const arpTable = `IP address       HW type     Flags       HW address            Mask     Device
192.168.4.20     0x1         0x2         aa:bb:cc:00:00:01     *        wlan0
`

func newTestServer(t *testing.T) *Server {
	reg := registry.New("wlan0")
	reg.ObserveRole(s1, registry.RoleSource, vendors)
	reg.ObserveRole(s2, registry.RoleSource, vendors)
	reg.ObserveRole(frame.Broadcast, registry.RoleDestination, vendors)

	tbl := neigh.NewTable("wlan0")
	tbl.Entries = func() (neigh.Entries, error) {
		return neigh.ReadAll(bytes.NewReader([]byte(arpTable)))
	}
	if err := tbl.Update(); err != nil {
		t.Fatal(err)
	}

	return &Server{
		Discovery: &fakeDiscovery{
			reg:   reg,
			stats: discovery.StatsSnapshot{State: "capturing", Iface: "wlan0", Frames: 7, Sightings: 3},
		},
		Neighbors: tbl,
		Aliases:   devicestats.Aliases{s2: "printer"},
		Interfaces: func() ([]iface.Info, error) {
			return []iface.Info{{Name: "lo", Loopback: true}, {Name: "wlan0", Up: true}}, nil
		},
	}
}

func get(t *testing.T, h http.Handler, url string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if v != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatal(err)
		}
	}
	return rec
}

func TestDevicesV1(t *testing.T) {
	h := newTestServer(t).Routes()

	t.Run("all", func(t *testing.T) {
		is := is.New(t)
		var ss devicestats.Stats
		rec := get(t, h, "/v1/devices/", &ss)
		is.Equal(rec.Code, http.StatusOK)
		is.Equal(rec.Header().Get("Content-Type"), "application/json")
		is.True(rec.Header().Get("Request-Id") != "")
		is.Equal(len(ss), 3)
		is.Equal(ss[0].HWAddr, "aa:bb:cc:00:00:01")
		is.Equal(ss[0].Vendor, "Acme Corp")
		is.Equal(ss[0].IPs, []string{"192.168.4.20"})
		is.Equal(ss[0].Role, "source")
		is.Equal(ss[1].HWAddr, "dc:ee:ff:00:00:02")
		is.Equal(ss[1].Name, "printer")
		is.Equal(ss[1].Scope, "universal")
		is.Equal(ss[2].Scope, "group")
		is.Equal(ss[2].Role, "destination")
	})

	t.Run("filter", func(t *testing.T) {
		is := is.New(t)
		var ss devicestats.Stats
		get(t, h, "/v1/devices/?vendor=acme+corp&hwaddr=FF:FF:FF:FF:FF:FF", &ss)
		is.Equal(len(ss), 2)
	})

	t.Run("order by name", func(t *testing.T) {
		is := is.New(t)
		var ss devicestats.Stats
		get(t, h, "/v1/devices/?order_by=name", &ss)
		is.Equal(ss[0].Name, "printer")
	})

	t.Run("order by hwaddr", func(t *testing.T) {
		is := is.New(t)
		var ss devicestats.Stats
		get(t, h, "/v1/devices/?order_by=hwaddr", &ss)
		is.Equal(ss[0].HWAddr, "aa:bb:cc:00:00:01")
		is.Equal(ss[2].HWAddr, "ff:ff:ff:ff:ff:ff")
	})
}

func TestDevicesV1NotCapturing(t *testing.T) {
	is := is.New(t)
	s := &Server{Discovery: &fakeDiscovery{}}
	rec := get(t, s.Routes(), "/v1/devices/", nil)
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Body.String(), "[]")
}

func TestInterfacesV1(t *testing.T) {
	is := is.New(t)
	h := newTestServer(t).Routes()
	var infos []iface.Info
	get(t, h, "/v1/interfaces/", &infos)
	is.Equal(len(infos), 2)
	is.True(!infos[0].Wireless)
	is.True(infos[1].Wireless)
}

func TestInterfacesV1Error(t *testing.T) {
	is := is.New(t)
	s := newTestServer(t)
	s.Interfaces = func() ([]iface.Info, error) {
		return nil, &iface.PlatformQueryError{Op: "list interfaces", Err: errors.New("denied")}
	}
	rec := get(t, s.Routes(), "/v1/interfaces/", nil)
	is.Equal(rec.Code, http.StatusInternalServerError)
	is.True(bytes.Contains(rec.Body.Bytes(), []byte("denied")))
}

func TestStatsV1(t *testing.T) {
	is := is.New(t)
	h := newTestServer(t).Routes()
	var st discovery.StatsSnapshot
	get(t, h, "/v1/stats/", &st)
	is.Equal(st.State, "capturing")
	is.Equal(st.Frames, uint64(7))
	is.Equal(st.Sightings, uint64(3))
}

func TestAppHandlerAfterWrite(t *testing.T) {
	is := is.New(t)
	h := AppHandler(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusTeapot)
		return errors.New("late")
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	h.ServeHTTP(rec, req)
	is.Equal(rec.Code, http.StatusTeapot)
}
