package extract

import (
	"fmt"
	"strings"

	"github.com/YLivay/titlex/scan"
)

// Mode selects how the input is processed.
type Mode int

const (
	// ModeBytes scans raw blocks for the marker without parsing records.
	ModeBytes Mode = iota
	// ModeJSON decodes the JSON object on every line and looks the field up.
	// It is much slower and serves as a reference for ModeBytes.
	ModeJSON
)

func (m Mode) String() string {
	switch m {
	case ModeBytes:
		return "bytes"
	case ModeJSON:
		return "json"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bytes":
		return ModeBytes, nil
	case "json":
		return ModeJSON, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want bytes or json)", s)
}

const (
	DefaultField            = "title"
	DefaultTerminator       = '"'
	DefaultBlockSize        = 32 << 20
	DefaultMaxCarry         = 64 << 20
	DefaultOutputBufferSize = 1 << 20
)

type Config struct {
	// Mode picks the byte scanner or the line-by-line JSON reference path.
	Mode Mode

	// BlockSize is the number of bytes read from the input per block.
	// Larger blocks mean fewer reads; correctness does not depend on it.
	// Default: 32 MiB.
	BlockSize int

	// MaxCarry bounds the bytes carried from one block into the next. A
	// value (or, with the record policy, a record) that needs more fails the
	// run. In ModeJSON it is the maximum line length.
	// Default: 64 MiB.
	MaxCarry int

	// Field is the name of the extracted field. It is used to build the
	// marker `"<field>": "` and as the key in ModeJSON.
	// Default: "title".
	Field string

	// Marker overrides the marker built from Field. ModeBytes only.
	Marker []byte

	// Terminator ends a value. Must be ASCII.
	// Default: '"'.
	Terminator byte

	// Boundaries are the structural bytes that close a record. Used by
	// scan.PolicyRecord. Must be ASCII.
	// Default: '\n' and '}'.
	Boundaries []byte

	// Policy decides how much of a block's tail is carried over.
	// Default: scan.PolicyMarker.
	Policy scan.Policy

	// Decompress enables gzip and zstd detection when opening files with
	// ExtractFile.
	Decompress bool

	// OutputBufferSize is the size of the buffered output writer.
	// Default: 1 MiB.
	OutputBufferSize int

	// ValidateUTF8 reports values that are not valid UTF-8 as malformed.
	// They are written out regardless.
	ValidateUTF8 bool

	// OnMalformed is called for every malformed value that did not stop the
	// run. Optional.
	OnMalformed func(*scan.MalformedValue)
}

func (c *Config) withDefaults() Config {
	cc := *c
	if cc.BlockSize <= 0 {
		cc.BlockSize = DefaultBlockSize
	}
	if cc.MaxCarry <= 0 {
		cc.MaxCarry = DefaultMaxCarry
	}
	if cc.Field == "" {
		cc.Field = DefaultField
	}
	if cc.Terminator == 0 {
		cc.Terminator = DefaultTerminator
	}
	if len(cc.Boundaries) == 0 {
		cc.Boundaries = scan.DefaultBoundaries
	}
	if cc.OutputBufferSize <= 0 {
		cc.OutputBufferSize = DefaultOutputBufferSize
	}
	return cc
}

func (c *Config) validate() error {
	if c.Terminator >= 0x80 {
		return fmt.Errorf("terminator %q is not an ASCII byte", c.Terminator)
	}
	for _, b := range c.Boundaries {
		if b >= 0x80 {
			return fmt.Errorf("boundary byte %q is not ASCII", b)
		}
	}
	if c.Mode == ModeBytes && len(c.marker()) == 0 {
		return fmt.Errorf("empty marker")
	}
	return nil
}

// marker returns the byte sequence that precedes a value.
func (c *Config) marker() []byte {
	if len(c.Marker) > 0 {
		return c.Marker
	}
	return MarkerFor(c.Field)
}

// MarkerFor builds the marker for a JSON string field as it appears in the
// logs: `"<field>": "`.
func MarkerFor(field string) []byte {
	return []byte(`"` + field + `": "`)
}
