package scan

import (
	"errors"
	"fmt"
)

// ErrMalformedValue matches every *MalformedValue with errors.Is.
var ErrMalformedValue = errors.New("malformed value")

type Reason string

const (
	ReasonUnterminated  Reason = "no terminator before end of stream"
	ReasonInvalidUTF8   Reason = "value is not valid UTF-8"
	ReasonCarryOverflow Reason = "carry fragment exceeds limit"
	ReasonInvalidJSON   Reason = "record is not valid JSON"
)

// previewLen caps how many bytes of the offending input a MalformedValue
// keeps around.
const previewLen = 64

// MalformedValue describes an occurrence, or a stretch of input, that could
// not be extracted cleanly. Offset is a byte offset into the whole input
// stream, not into a block.
type MalformedValue struct {
	Offset  int64
	Reason  Reason
	Preview []byte
}

// NewMalformed copies at most previewLen bytes of b into the preview.
func NewMalformed(offset int64, reason Reason, b []byte) *MalformedValue {
	return &MalformedValue{
		Offset:  offset,
		Reason:  reason,
		Preview: append([]byte(nil), b[:min(len(b), previewLen)]...),
	}
}

func (m *MalformedValue) Error() string {
	return fmt.Sprintf("malformed value at offset %d: %s", m.Offset, m.Reason)
}

func (m *MalformedValue) Is(target error) bool {
	return target == ErrMalformedValue
}
