package main

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/some-programs/ouisniff/internal/iface"
)

func newLsCommand(root *rootConfig) *ffcli.Command {
	return &ffcli.Command{
		Name:       "ls",
		ShortUsage: "ouisniff ls <interfaces|wifi>",
		ShortHelp:  "list network interfaces",
		FlagSet:    newFlagSet("ls"),
		Options:    ffOptions(),
		Subcommands: []*ffcli.Command{
			{
				Name:       "interfaces",
				ShortUsage: "ouisniff ls interfaces",
				ShortHelp:  "list all interfaces",
				FlagSet:    newFlagSet("interfaces"),
				Options:    ffOptions(),
				Exec: func(context.Context, []string) error {
					return root.listInterfaces(false)
				},
			},
			{
				Name:       "wifi",
				ShortUsage: "ouisniff ls wifi",
				ShortHelp:  "list wireless interfaces",
				FlagSet:    newFlagSet("wifi"),
				Options:    ffOptions(),
				Exec: func(context.Context, []string) error {
					return root.listInterfaces(true)
				},
			},
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func (c *rootConfig) listInterfaces(wifiOnly bool) error {
	policy, err := c.policy()
	if err != nil {
		return err
	}
	infos, err := iface.List()
	if err != nil {
		return err
	}
	infos = iface.Classify(infos, policy)
	if wifiOnly {
		infos = iface.Wireless(infos)
	}
	infos = iface.Truncate(infos, c.limit)
	fmt.Fprintln(c.out, renderInterfaces(infos))
	return nil
}

var interfaceHeaders = []string{
	"name", "ipv6", "ipv4", "is_up", "is_loopback", "is_multicast",
	"is_broadcast", "is_point_to_point", "is_running", "is_wifi",
}

func joinPrefixes(ps []netip.Prefix) string {
	ss := make([]string, 0, len(ps))
	for _, p := range ps {
		ss = append(ss, p.String())
	}
	return strings.Join(ss, ", ")
}

func interfaceRow(info iface.Info) []string {
	b := strconv.FormatBool
	return []string{
		info.Name,
		joinPrefixes(info.IPv6),
		joinPrefixes(info.IPv4),
		b(info.Up),
		b(info.Loopback),
		b(info.Multicast),
		b(info.Broadcast),
		b(info.PointToPoint),
		b(info.Running),
		b(info.Wireless),
	}
}

func renderInterfaces(infos []iface.Info) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, interfaceRow(info))
	}
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(interfaceHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	return t.String()
}
