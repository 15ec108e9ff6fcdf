package scan

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Policy decides which tail of a window is carried into the next one.
type Policy int

const (
	// PolicyMarker carries only what is needed: an occurrence whose value has
	// not seen its terminator yet, or a tail that could be the start of a
	// marker.
	PolicyMarker Policy = iota

	// PolicyRecord additionally holds back every occurrence after the last
	// structural boundary, so the carry always starts on a record boundary.
	// A window without any boundary byte is carried whole.
	PolicyRecord
)

func (p Policy) String() string {
	switch p {
	case PolicyMarker:
		return "marker"
	case PolicyRecord:
		return "record"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "marker":
		return PolicyMarker, nil
	case "record":
		return PolicyRecord, nil
	}
	return 0, fmt.Errorf("unknown carry policy %q (want marker or record)", s)
}

type Options struct {
	// Marker precedes every value. Must not be empty.
	Marker []byte
	// Terminator ends a value.
	Terminator byte
	// Boundaries are the structural bytes used by PolicyRecord.
	Boundaries []byte
	Policy     Policy
	// MaxCarry bounds the carry fragment. Zero or less disables the check.
	MaxCarry int
	// ValidateUTF8 reports values that are not valid UTF-8. They are still
	// emitted.
	ValidateUTF8 bool
	// OnMalformed receives per-occurrence problems that do not stop the scan.
	OnMalformed func(*MalformedValue)
}

// Window is the span of input handed to a single Scan call: the carry from
// the previous call followed by freshly read bytes.
type Window struct {
	Data []byte
	// Offset is the position of Data[0] in the input stream.
	Offset int64
	// Final is set when no more input follows Data.
	Final bool
}

// Value is one extracted field value. Bytes aliases the window and is only
// valid until the emit callback returns.
type Value struct {
	Offset int64
	Bytes  []byte
}

// Scanner extracts marker-prefixed values from windows of input. It holds no
// state between calls; everything that has to survive a window boundary is
// returned as carry.
type Scanner struct {
	finder *Finder
	opts   Options
}

func NewScanner(opts Options) (*Scanner, error) {
	if len(opts.Marker) == 0 {
		return nil, errors.New("scan: marker must not be empty")
	}
	if opts.Policy == PolicyRecord && len(opts.Boundaries) == 0 {
		return nil, errors.New("scan: record policy needs at least one boundary byte")
	}
	opts.Marker = bytes.Clone(opts.Marker)
	opts.Boundaries = bytes.Clone(opts.Boundaries)
	return &Scanner{finder: NewFinder(opts.Marker), opts: opts}, nil
}

// Marker returns the marker the scanner searches for.
func (s *Scanner) Marker() []byte {
	return s.finder.Pattern()
}

// Scan emits every value in w that can be extracted without seeing more
// input, in input order, and returns the tail of w.Data that must be
// prepended to the next window. The returned carry aliases w.Data; callers
// that reuse the buffer have to copy it first.
//
// A carry longer than Options.MaxCarry fails with a *MalformedValue. Errors
// returned by emit abort the scan and are returned as is.
func (s *Scanner) Scan(w Window, emit func(Value) error) (carry []byte, err error) {
	data := w.Data
	markerLen := len(s.finder.Pattern())

	// Occurrences at or past limit are left for the next window.
	limit := len(data)
	if !w.Final && s.opts.Policy == PolicyRecord {
		limit = SafeBoundary(data, s.opts.Boundaries)
	}

	cut := len(data)
	// End of the last marker whose value was emitted. Matching resumes here.
	resume := 0
	for {
		o := s.finder.IndexFrom(data, resume)
		if o < 0 {
			break
		}
		if o >= limit {
			cut = o
			break
		}

		start := o + markerLen
		end := -1
		if start < len(data) {
			if i := bytes.IndexByte(data[start:], s.opts.Terminator); i >= 0 {
				end = start + i
			}
		}
		if end < 0 {
			if !w.Final {
				cut = o
				break
			}
			end = len(data)
			s.report(NewMalformed(w.Offset+int64(o), ReasonUnterminated, data[start:end]))
		}

		value := data[start:end]
		if s.opts.ValidateUTF8 && !utf8.Valid(value) {
			s.report(NewMalformed(w.Offset+int64(start), ReasonInvalidUTF8, value))
		}
		if err := emit(Value{Offset: w.Offset + int64(start), Bytes: value}); err != nil {
			return nil, err
		}
		resume = start
	}

	if w.Final {
		return nil, nil
	}

	if p := s.finder.PartialSuffix(data, resume); p >= 0 && p < cut {
		cut = p
	}
	if s.opts.Policy == PolicyRecord {
		if b := max(limit, resume); b < cut {
			cut = b
		}
	}

	carry = data[cut:]
	if s.opts.MaxCarry > 0 && len(carry) > s.opts.MaxCarry {
		return nil, NewMalformed(w.Offset+int64(cut), ReasonCarryOverflow, carry)
	}
	return carry, nil
}

func (s *Scanner) report(m *MalformedValue) {
	if s.opts.OnMalformed != nil {
		s.opts.OnMalformed(m)
	}
}
