package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/zerolog/hlog"

	"github.com/some-programs/ouisniff/internal/devicestats"
	"github.com/some-programs/ouisniff/internal/discovery"
	"github.com/some-programs/ouisniff/internal/iface"
	"github.com/some-programs/ouisniff/internal/log"
	"github.com/some-programs/ouisniff/internal/neigh"
	"github.com/some-programs/ouisniff/internal/registry"
)

// Discovery is the running loop as seen by the server. *discovery.Loop
// implements it.
type Discovery interface {
	Registry() *registry.Registry
	Stats() discovery.StatsSnapshot
}

// Server contains the JSON API routes.
type Server struct {
	Discovery Discovery
	// Neighbors adds IP addresses and host names, optional.
	Neighbors  *neigh.Table
	Aliases    devicestats.Aliases
	Interfaces func() ([]iface.Info, error)
	Policy     iface.WirelessPolicy
}

// Routes returns a *http.ServeMux with all the application request handlers.
func (s *Server) Routes() *http.ServeMux {
	c := alice.New()
	c = c.Append(
		hlog.NewHandler(log.Logger),
		hlog.RequestIDHandler("req_id", "Request-Id"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			l := log.WithIDWithoutCaller(r.Context()).Logger()
			l.Debug().
				Str("caller", "http").
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("dur", duration).
				Str("addr", r.RemoteAddr).
				Msg("")
		}),
		MaxBytesReaderMiddleware(1024*1024),
	)

	mux := http.NewServeMux()
	mux.Handle("/v1/devices/", c.Then(s.DevicesV1()))
	mux.Handle("/v1/interfaces/", c.Then(s.InterfacesV1()))
	mux.Handle("/v1/stats/", c.Then(s.StatsV1()))
	return mux
}

// Devices returns the current device list in discovery order.
func (s *Server) Devices() devicestats.Stats {
	reg := s.Discovery.Registry()
	if reg == nil {
		return devicestats.Stats{}
	}
	sightings := reg.Snapshot()
	res := make(devicestats.Stats, 0, len(sightings))
	for _, v := range sightings {
		stat := devicestats.FromSighting(v)
		if s.Neighbors != nil {
			n := s.Neighbors.Lookup(v.Addr)
			stat.IPs = n.IPs
			stat.Hostnames = n.Hostnames
			if len(n.Hostnames) > 0 {
				stat.Name = n.Hostnames[0]
			}
		}
		if alias := s.Aliases[v.Addr]; alias != "" {
			stat.Name = alias
		}
		res = append(res, stat)
	}
	return res
}

// DevicesV1 is an API resource that returns a JSON encoded response with the
// devices discovered so far.
func (s *Server) DevicesV1() AppHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		q := r.URL.Query()
		res := s.Devices().Filter(q["hwaddr"], q["vendor"])
		res.Order(q.Get("order_by"))
		return writeJSON(w, r, res)
	}
}

// InterfacesV1 lists the classified interfaces.
func (s *Server) InterfacesV1() AppHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		list := s.Interfaces
		if list == nil {
			list = iface.List
		}
		infos, err := list()
		if err != nil {
			log.FromRequest(r).Warn().Err(err).Msg("list interfaces")
			return err
		}
		policy := s.Policy
		if policy == nil {
			policy = iface.NameMatch(nil)
		}
		return writeJSON(w, r, iface.Classify(infos, policy))
	}
}

// StatsV1 returns the discovery loop counters.
func (s *Server) StatsV1() AppHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		return writeJSON(w, r, s.Discovery.Stats())
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		log.FromRequest(r).Info().Err(err).Msg("")
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return nil
}
