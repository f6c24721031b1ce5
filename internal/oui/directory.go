// Package oui maps the organizationally unique identifier of a hardware
// address to a vendor name.
//
// The directory is loaded once from a two column CSV resource ("prefix,vendor")
// and is read-only afterwards. A Wireshark manuf database can be attached as a
// secondary source for prefixes missing from the CSV.
package oui

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	manuf "github.com/tomruk/oui"

	"github.com/some-programs/ouisniff/internal/frame"
)

var (
	ErrEmpty           = errors.New("directory is empty")
	ErrInvalidPrefix   = errors.New("invalid OUI prefix")
	ErrMissingVendor   = errors.New("missing vendor name")
	ErrDuplicatePrefix = errors.New("duplicate OUI prefix")
	ErrColumns         = errors.New("expected 2 columns")
)

// LoadError is returned when the vendor resource can't be read or contains a
// malformed record. Line is 0 for errors not tied to a record.
type LoadError struct {
	Source string
	Line   int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load vendor directory %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("load vendor directory %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Directory resolves hardware addresses to vendor labels.
type Directory struct {
	vendors map[[3]byte]string
	manuf   *manuf.DB
}

// Option configures a Directory at load time.
type Option func(*Directory)

// WithManuf attaches a Wireshark manuf database consulted when the CSV has no
// entry for a prefix.
func WithManuf(db *manuf.DB) Option {
	return func(d *Directory) { d.manuf = db }
}

// Load parses a vendor directory from r. Any malformed record fails the whole
// load. source names r in errors.
func Load(r io.Reader, source string, opts ...Option) (*Directory, error) {
	d := &Directory{vendors: make(map[[3]byte]string)}
	for _, opt := range opts {
		opt(d)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &LoadError{Source: source, Line: perr.StartLine, Err: err}
			}
			return nil, &LoadError{Source: source, Err: err}
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != 2 {
			return nil, &LoadError{Source: source, Line: line, Err: fmt.Errorf("%w, got %d", ErrColumns, len(rec))}
		}
		prefix, err := ParsePrefix(rec[0])
		if err != nil {
			if first {
				// header row
				first = false
				continue
			}
			return nil, &LoadError{Source: source, Line: line, Err: err}
		}
		first = false
		vendor := strings.TrimSpace(rec[1])
		if vendor == "" {
			return nil, &LoadError{Source: source, Line: line, Err: ErrMissingVendor}
		}
		if _, ok := d.vendors[prefix]; ok {
			return nil, &LoadError{Source: source, Line: line, Err: fmt.Errorf("%w: %s", ErrDuplicatePrefix, FormatPrefix(prefix))}
		}
		d.vendors[prefix] = vendor
	}

	if len(d.vendors) == 0 {
		return nil, &LoadError{Source: source, Err: ErrEmpty}
	}
	return d, nil
}

// LoadBytes is Load over an in-memory resource.
func LoadBytes(data []byte, source string, opts ...Option) (*Directory, error) {
	return Load(bytes.NewReader(data), source, opts...)
}

// LoadFile loads a vendor directory from the named file.
func LoadFile(path string, opts ...Option) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()
	return Load(f, path, opts...)
}

// LoadManuf parses a Wireshark manuf database.
func LoadManuf(data []byte, source string) (*manuf.DB, error) {
	db, err := manuf.NewDB(data)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return db, nil
}

// LoadManufFile reads a Wireshark manuf database.
func LoadManufFile(path string) (*manuf.DB, error) {
	db, err := manuf.NewDBFromFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return db, nil
}

// Len returns the number of CSV entries.
func (d *Directory) Len() int {
	return len(d.vendors)
}

// Lookup returns the vendor for the address' OUI.
func (d *Directory) Lookup(addr frame.HardwareAddr) (string, bool) {
	if v, ok := d.vendors[addr.OUI()]; ok {
		return v, true
	}
	if d.manuf != nil {
		v, err := d.manuf.Lookup(addr.String())
		if err == nil && v != "" {
			return v, true
		}
	}
	return "", false
}

// Resolve returns the vendor for addr, or UnknownLabel when there is none.
func (d *Directory) Resolve(addr frame.HardwareAddr) string {
	if v, ok := d.Lookup(addr); ok {
		return v
	}
	return UnknownLabel(addr)
}

// UnknownLabel is the label for addresses without a directory entry. It
// embeds the unresolved prefix.
func UnknownLabel(addr frame.HardwareAddr) string {
	return "unknown device: " + addr.Prefix()
}

// ParsePrefix parses "XX:XX:XX" (or hyphen separated) case-insensitively.
func ParsePrefix(s string) ([3]byte, error) {
	var p [3]byte
	if !frame.ParseOctets(strings.TrimSpace(s), p[:]) {
		return p, fmt.Errorf("%w: %q", ErrInvalidPrefix, s)
	}
	return p, nil
}

// FormatPrefix returns the canonical upper case form of p.
func FormatPrefix(p [3]byte) string {
	return fmt.Sprintf("%02X:%02X:%02X", p[0], p[1], p[2])
}
