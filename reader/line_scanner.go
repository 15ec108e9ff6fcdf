package reader

import (
	"bufio"
	"bytes"
	"io"
)

// LineScanner reads a stream line by line and keeps track of where each line
// starts. Lines are returned without their line ending.
type LineScanner struct {
	*bufio.Scanner
	// Offset of the current line in the stream.
	offset int64
	// Offset of the line after the current one.
	next  int64
	token []byte
}

// NewLineScanner returns a scanner that accepts lines of up to maxLine
// bytes, including the line ending. Longer lines make Scan fail with
// bufio.ErrTooLong.
func NewLineScanner(r io.Reader, maxLine int) *LineScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	scanner.Split(ScanLines)

	return &LineScanner{Scanner: scanner}
}

func (s *LineScanner) Scan() bool {
	if !s.Scanner.Scan() {
		s.token = nil
		return false
	}

	raw := s.Scanner.Bytes()
	s.offset = s.next
	s.next += int64(len(raw))

	// Get rid of the line ending, if any. The last line of a stream may not
	// have one.
	s.token = raw
	if n := len(s.token); n > 0 && s.token[n-1] == '\n' {
		s.token = bytes.TrimSuffix(s.token[:n-1], []byte{'\r'})
	}
	return true
}

func (s *LineScanner) Bytes() []byte {
	return s.token
}

func (s *LineScanner) Text() string {
	return string(s.token)
}

// Offset returns the stream offset of the first byte of the current line.
func (s *LineScanner) Offset() int64 {
	return s.offset
}

// End returns the stream offset just past the current line's ending.
func (s *LineScanner) End() int64 {
	return s.next
}

// ScanLines is bufio.ScanLines modified to keep the carriage return and
// newline in the token. This lets the caller tell a newline-terminated line
// from a final line that ran into EOF, and count bytes exactly.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		// We have a full newline-terminated line.
		return i + 1, data[0 : i+1], nil
	}
	// If we're at EOF, we have a final, non-terminated line. Return it.
	if atEOF {
		return len(data), data, nil
	}
	// Request more data.
	return 0, nil, nil
}
