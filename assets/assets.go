package assets

import (
	_ "embed"
)

// OUICSV is the built in vendor directory, "prefix,vendor" rows.
//
//go:embed oui.csv
var OUICSV []byte

// ManufTxt is the Wireshark manuf database consulted for prefixes missing
// from OUICSV.
//
//go:embed manuf
var ManufTxt []byte
