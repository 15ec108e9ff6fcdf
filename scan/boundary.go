package scan

import "bytes"

// DefaultBoundaries are the bytes that can close a record in a JSON-ish log
// line: the end of the line and the end of the embedded object.
var DefaultBoundaries = []byte{'\n', '}'}

// SafeBoundary returns the offset one past the last byte of data that is one
// of boundaries, or 0 if none of them occur. Everything before the returned
// offset holds only complete records.
func SafeBoundary(data []byte, boundaries []byte) int {
	best := -1
	for _, b := range boundaries {
		// Each boundary only needs searching past the best match so far.
		if i := bytes.LastIndexByte(data[best+1:], b); i >= 0 {
			best += i + 1
		}
	}
	return best + 1
}
