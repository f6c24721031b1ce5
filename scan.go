package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/go-pa/flagutil"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/some-programs/ouisniff/internal/capture"
	"github.com/some-programs/ouisniff/internal/devicestats"
	"github.com/some-programs/ouisniff/internal/discovery"
	"github.com/some-programs/ouisniff/internal/frame"
	"github.com/some-programs/ouisniff/internal/iface"
	"github.com/some-programs/ouisniff/internal/log"
	"github.com/some-programs/ouisniff/internal/neigh"
	"github.com/some-programs/ouisniff/internal/registry"
	"github.com/some-programs/ouisniff/internal/server"
)

type scanConfig struct {
	root *rootConfig

	iface        string
	backend      string
	snapLen      int
	promisc      bool
	poll         time.Duration
	maxTransient int
	listen       string
	aliases      flagutil.StringSliceFlag
	neighDelay   time.Duration
	dnsDelay     time.Duration
	avgSamples   int
}

func (c *scanConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&c.iface, "iface", "", "interface to capture on (default: first wireless interface)")
	fs.StringVar(&c.backend, "backend", capture.DefaultConfig.Backend, fmt.Sprintf("capture backend %v", capture.Backends()))
	fs.IntVar(&c.snapLen, "snaplen", capture.DefaultConfig.SnapLen, "capture snapshot length")
	fs.BoolVar(&c.promisc, "promisc", capture.DefaultConfig.Promisc, "put the interface in promiscuous mode")
	fs.DurationVar(&c.poll, "poll", capture.DefaultConfig.Poll, "capture read poll interval, bounds shutdown latency")
	fs.IntVar(&c.maxTransient, "max.transient", 100, "consecutive transient capture errors before giving up, 0 for no limit")
	fs.StringVar(&c.listen, "listen", "", "status API listen address, ex: 127.0.0.1:8834")
	fs.Var(&c.aliases, "aliases", "hardware address aliases comma separated. ex: -aliases=00:00:00:00:00:00=nas.alias,00:00:00:00:00:01=server.alias")
	fs.DurationVar(&c.neighDelay, "neigh.delay", 5*time.Second, "delay between rereading the neighbor table")
	fs.DurationVar(&c.dnsDelay, "dns.delay", time.Minute, "delay between reresolving host names")
	fs.IntVar(&c.avgSamples, "avg.samples", 8, "number of samples to create the frame rate average from")
}

func newScanCommand(root *rootConfig) *ffcli.Command {
	leaf := func(name, help string, exec func(context.Context, *scanConfig) error) *ffcli.Command {
		c := &scanConfig{root: root}
		fs := newFlagSet(name)
		c.register(fs)
		return &ffcli.Command{
			Name:       name,
			ShortUsage: "ouisniff scan " + name + " [flags]",
			ShortHelp:  help,
			FlagSet:    fs,
			Options:    ffOptions(),
			Exec: func(ctx context.Context, _ []string) error {
				return exec(ctx, c)
			},
		}
	}
	return &ffcli.Command{
		Name:       "scan",
		ShortUsage: "ouisniff scan <packets|devices> [flags]",
		ShortHelp:  "capture frames from a wireless interface",
		FlagSet:    newFlagSet("scan"),
		Options:    ffOptions(),
		Subcommands: []*ffcli.Command{
			leaf("packets", "print every captured frame", scanPackets),
			leaf("devices", "print every newly discovered device", scanDevices),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

// discoveryConfig builds the loop configuration from the flags. Hooks are
// set by the caller.
func (c *scanConfig) discoveryConfig() (discovery.Config, error) {
	policy, err := c.root.policy()
	if err != nil {
		return discovery.Config{}, err
	}
	dir, err := c.root.vendors()
	if err != nil {
		return discovery.Config{}, err
	}
	cfg := discovery.Config{
		Interfaces: iface.List,
		Policy:     policy,
		IfaceName:  c.iface,
		Open: discovery.CaptureOpener(capture.Config{
			Backend: c.backend,
			SnapLen: c.snapLen,
			Promisc: c.promisc,
			Poll:    c.poll,
		}),
		Resolver:     dir,
		MaxTransient: c.maxTransient,
		StatsSamples: c.avgSamples,
	}
	return cfg, nil
}

// run runs the loop, and the status API when -listen is set, until ctx is
// cancelled or capture fails.
func (c *scanConfig) run(ctx context.Context, cfg discovery.Config) error {
	aliases, err := devicestats.ParseAliases(c.aliases)
	if err != nil {
		return err
	}
	policy := cfg.Policy
	loop := discovery.New(cfg)

	if c.listen != "" {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		srv := &server.Server{
			Discovery:  loop,
			Aliases:    aliases,
			Interfaces: iface.List,
			Policy:     policy,
		}
		if runtime.GOOS == "linux" {
			srv.Neighbors = neigh.NewTable(c.iface)
			go func() {
				// the target is only known once capture has started
				if !waitCapturing(ctx, loop) {
					return
				}
				if target, ok := loop.Target(); ok {
					srv.Neighbors.Device = target.Name
				}
				srv.Neighbors.Run(ctx, c.neighDelay, c.dnsDelay)
			}()
		}
		if err := c.serve(ctx, srv); err != nil {
			return err
		}
	}
	return loop.Run(ctx)
}

func waitCapturing(ctx context.Context, loop *discovery.Loop) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch loop.State() {
		case discovery.StateCapturing:
			return true
		case discovery.StateStopped:
			return false
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}
	}
}

func (c *scanConfig) serve(ctx context.Context, srv *server.Server) error {
	ln, err := net.Listen("tcp", c.listen)
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	hs := &http.Server{
		Handler:        srv.Routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("status server shutdown")
		}
	}()
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status server failed")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("status server listening")
	return nil
}

func scanPackets(ctx context.Context, c *scanConfig) error {
	cfg, err := c.discoveryConfig()
	if err != nil {
		return err
	}
	out := c.root.out
	cfg.OnFrame = func(f frame.Frame) {
		fmt.Fprintln(out, f)
	}
	return c.run(ctx, cfg)
}

// scanDevices runs the loop on its own goroutine and prints sightings as
// they arrive on a channel.
func scanDevices(ctx context.Context, c *scanConfig) error {
	cfg, err := c.discoveryConfig()
	if err != nil {
		return err
	}
	sightings := make(chan registry.Sighting, 64)
	cfg.OnSighting = func(s registry.Sighting) {
		sightings <- s
	}
	errc := make(chan error, 1)
	go func() {
		errc <- c.run(ctx, cfg)
		close(sightings)
	}()
	for s := range sightings {
		fmt.Fprintln(c.root.out, s)
	}
	return <-errc
}
