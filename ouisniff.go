// Command ouisniff passively discovers devices on a local link and names
// their vendors from the OUI of their hardware address.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-pa/flagutil"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"

	"github.com/some-programs/ouisniff/assets"
	"github.com/some-programs/ouisniff/internal/iface"
	"github.com/some-programs/ouisniff/internal/log"
	"github.com/some-programs/ouisniff/internal/oui"
)

const envPrefix = "OUISNIFF"

// rootConfig holds the flags shared by all subcommands.
type rootConfig struct {
	out io.Writer

	logFlags   log.Flags
	limit      int
	ouiFile    string
	ouiManuf   string
	wifiNames  flagutil.StringSliceFlag
	wifiDetect string
}

func (c *rootConfig) register(fs *flag.FlagSet) {
	c.logFlags.Register(fs)
	fs.IntVar(&c.limit, "limit", 500, "max number of interfaces to list")
	fs.StringVar(&c.ouiFile, "oui.file", "", "vendor directory CSV (prefix,vendor) to use instead of the embedded one")
	fs.StringVar(&c.ouiManuf, "oui.manuf", "", "wireshark manuf file consulted for prefixes missing from the vendor directory (default: embedded, none to disable)")
	fs.Var(&c.wifiNames, "wifi.names", "comma separated interface names treated as wireless (default wlan0)")
	fs.StringVar(&c.wifiDetect, "wifi.detect", "name", "wireless detection: name or sysfs")
}

// policy returns the configured wireless classification.
func (c *rootConfig) policy() (iface.WirelessPolicy, error) {
	switch c.wifiDetect {
	case "name", "":
		return iface.NameMatch(c.wifiNames), nil
	case "sysfs":
		return iface.SysfsWireless{}, nil
	default:
		return nil, fmt.Errorf("unknown -wifi.detect value %q (want name or sysfs)", c.wifiDetect)
	}
}

// vendors loads the vendor directory, failing on any malformed record.
func (c *rootConfig) vendors() (*oui.Directory, error) {
	var opts []oui.Option
	switch c.ouiManuf {
	case "none":
	case "":
		db, err := oui.LoadManuf(assets.ManufTxt, "embedded manuf")
		if err != nil {
			return nil, err
		}
		opts = append(opts, oui.WithManuf(db))
	default:
		db, err := oui.LoadManufFile(c.ouiManuf)
		if err != nil {
			return nil, err
		}
		opts = append(opts, oui.WithManuf(db))
	}
	var (
		dir *oui.Directory
		err error
	)
	if c.ouiFile != "" {
		dir, err = oui.LoadFile(c.ouiFile, opts...)
	} else {
		dir, err = oui.LoadBytes(assets.OUICSV, "embedded oui.csv", opts...)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Int("entries", dir.Len()).Msg("vendor directory loaded")
	return dir, nil
}

// ffOptions are shared by every command. Each command registers its own
// -config flag so one YAML file can hold the flags of all of them.
func ffOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithIgnoreUndefined(true),
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "YAML config file")
	return fs
}

func newRootCommand(out io.Writer) (*ffcli.Command, *rootConfig) {
	cfg := &rootConfig{out: out}
	fs := newFlagSet("ouisniff")
	cfg.register(fs)

	return &ffcli.Command{
		Name:       "ouisniff",
		ShortUsage: "ouisniff [flags] <subcommand> [flags]",
		ShortHelp:  "passive link-layer device discovery",
		FlagSet:    fs,
		Options:    ffOptions(),
		Subcommands: []*ffcli.Command{
			newLsCommand(cfg),
			newScanCommand(cfg),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}, cfg
}

func main() {
	root, cfg := newRootCommand(os.Stdout)
	if err := root.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "ouisniff:", err)
		os.Exit(2)
	}
	if err := cfg.logFlags.Setup(); err != nil {
		fmt.Fprintln(os.Stderr, "ouisniff: log setup:", err)
		os.Exit(2)
	}
	log.Debug().Msg("application starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(c)

		select {
		case <-ctx.Done():
		case <-c:
			log.Info().Msg("shutting down...")
			cancel()
		}
	}()

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, "ouisniff:", err)
		cancel()
		os.Exit(1)
	}
}
