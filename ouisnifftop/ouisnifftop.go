// Command ouisnifftop shows the devices found by a running ouisniff in a
// terminal table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/peterbourgon/ff/v3"

	"github.com/some-programs/ouisniff/internal/devicestats"
	"github.com/some-programs/ouisniff/internal/log"
)

func readDevices(ctx context.Context, baseURL string) (devicestats.Stats, error) {
	url := fmt.Sprintf("%s/v1/devices/", baseURL)
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var stats devicestats.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return stats, nil
}

var headers = []string{"hwaddr (h)", "vendor (v)", "name (n)", "ips", "scope", "first seen (f)"}

// orderKeys maps keyboard keys to devicestats orderings.
var orderKeys = map[string]string{
	"h": "hwaddr",
	"v": "vendor",
	"n": "name",
	"f": "first_seen",
}

func tableRows(stats devicestats.Stats, orderBy string, now time.Time) [][]string {
	stats.Order(orderKeys[orderBy])
	rows := make([][]string, 0, len(stats)+1)
	rows = append(rows, headers)
	for _, v := range stats {
		rows = append(rows, []string{v.HWAddr, v.Vendor, v.Name, v.IPsFmt(), v.Scope, v.AgeFmt(now)})
	}
	return rows
}

// columnWidths grows widths to fit every cell.
func columnWidths(widths []int, rows [][]string) []int {
	for _, row := range rows {
		for idx, v := range row {
			l := len(v) + 2
			if widths[idx] < l {
				widths[idx] = l
			}
		}
	}
	return widths
}

func main() {
	var (
		baseURL  string
		interval time.Duration
		logFlags log.Flags
	)
	fs := flag.NewFlagSet("ouisnifftop", flag.ExitOnError)
	fs.StringVar(&baseURL, "url", "http://127.0.0.1:8834", "base url of the ouisniff status API")
	fs.DurationVar(&interval, "interval", 500*time.Millisecond, "refresh interval")
	logFlags.Register(fs)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("OUISNIFFTOP")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// the terminal belongs to termui, log to a file or not at all
	if logFlags.FileName == "" {
		log.SetDiscardLogger()
	} else if err := logFlags.Setup(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := ui.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize termui: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(c)

		select {
		case <-ctx.Done():
		case <-c:
			cancel()
		}
	}()

	defer ui.Close()
	table := widgets.NewTable()
	table.TextStyle = ui.StyleClear
	table.BorderStyle = ui.StyleClear
	table.Title = baseURL
	w, h := ui.TerminalDimensions()
	table.SetRect(0, 0, w, h)
	table.RowSeparator = false
	table.ColumnWidths = columnWidths(make([]int, len(headers)), [][]string{headers})

	statsCh := make(chan devicestats.Stats)

	go func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats, err := readDevices(ctx, baseURL)
				if err != nil {
					log.Warn().Err(err).Msg("read devices")
					errCh <- err
					return
				}
				select {
				case statsCh <- stats:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}(ctx)

	uiEvents := ui.PollEvents()
	orderBy := "f"
loop:
	for {
		select {
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>", "<Escape>":
				break loop
			case "h", "v", "n", "f":
				orderBy = e.ID
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				table.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				ui.Render(table)
			}
		case stats := <-statsCh:
			table.Rows = tableRows(stats, orderBy, time.Now())
			table.ColumnWidths = columnWidths(table.ColumnWidths, table.Rows)
			ui.Render(table)
		case <-ctx.Done():
			break loop
		case err := <-errCh:
			ui.Clear()
			ui.Close()
			fmt.Println(err)
			os.Exit(1)
		}
	}
}
