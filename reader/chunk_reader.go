package reader

import (
	"errors"
	"fmt"
	"io"
)

// ChunkReader reads its source in fixed-size blocks into one reusable
// buffer. It never seeks and never re-reads.
type ChunkReader struct {
	r   io.Reader
	buf []byte
	// Total number of bytes handed out so far.
	pos int64
	// Set once a fill came up short, meaning the source has nothing left.
	exhausted bool
}

func NewChunkReader(r io.Reader, blockSize int) *ChunkReader {
	if blockSize <= 0 {
		panic(fmt.Sprintf("reader: invalid block size %d", blockSize))
	}

	return &ChunkReader{
		r:   r,
		buf: make([]byte, blockSize),
	}
}

// Next fills the block buffer and returns the filled part. The block is only
// valid until the next call. Once the source is exhausted Next returns
// io.EOF; any other error comes from the underlying reader.
//
// Short reads are retried until the block is full, so a block shorter than
// the capacity is always the last one (see Exhausted).
func (c *ChunkReader) Next() ([]byte, error) {
	if c.exhausted {
		return nil, io.EOF
	}

	n, err := io.ReadFull(c.r, c.buf)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}

		c.exhausted = true
		if n == 0 {
			return nil, io.EOF
		}
	}

	c.pos += int64(n)
	return c.buf[:n], nil
}

// Exhausted reports whether the block returned by the last Next call was the
// final one.
func (c *ChunkReader) Exhausted() bool {
	return c.exhausted
}

// Offset returns the number of bytes read from the source so far, which is
// also the stream offset just past the last returned block.
func (c *ChunkReader) Offset() int64 {
	return c.pos
}

// BlockSize returns the capacity of the block buffer.
func (c *ChunkReader) BlockSize() int {
	return len(c.buf)
}
