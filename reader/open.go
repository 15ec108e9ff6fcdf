package reader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Format int

const (
	FormatPlain Format = iota
	FormatGzip
	FormatZstd
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// sniffBufferSize is the size of the bufio.Reader used to peek at magic
// bytes. It is small on purpose since ChunkReader does its own buffering.
const sniffBufferSize = 4 * 1024

// Open opens filename for reading. "-" stands for stdin. When decompress is
// set, gzip and zstd streams are detected by their magic bytes and decoded
// transparently.
//
// The returned cleanup closes everything Open created, in reverse order. It
// is safe to call more than once.
func Open(filename string, decompress bool) (r io.Reader, format Format, cleanup func() error, err error) {
	// As resources are created in this function, accumulate functions to
	// close them in this slice.
	var closers []func() error
	cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		closers = nil
		return errors.Join(errs...)
	}

	if filename == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(filename)
		if err != nil {
			return nil, FormatPlain, nil, fmt.Errorf("failed to open input: %w", err)
		}
		closers = append(closers, f.Close)
		r = f
	}

	if !decompress {
		return r, FormatPlain, cleanup, nil
	}

	r, format, closer, err := Decompress(r)
	if err != nil {
		cleanup()
		return nil, FormatPlain, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	return r, format, cleanup, nil
}

// Decompress peeks at the first bytes of r and wraps it in a gzip or zstd
// decoder when they match a known magic number. closer is nil for plain
// input.
func Decompress(r io.Reader) (out io.Reader, format Format, closer func() error, err error) {
	br := bufio.NewReaderSize(r, sniffBufferSize)

	// Peek returns fewer bytes together with an error for short inputs,
	// which simply can't be compressed streams.
	hdr, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(hdr, gzipMagic):
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, FormatGzip, nil, fmt.Errorf("failed to read gzip header: %w", err)
		}
		return gzr, FormatGzip, gzr.Close, nil

	case bytes.HasPrefix(hdr, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, FormatZstd, nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		rc := dec.IOReadCloser()
		return rc, FormatZstd, rc.Close, nil
	}

	return br, FormatPlain, nil, nil
}
