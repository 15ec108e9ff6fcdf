package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/YLivay/titlex/reader"
	"github.com/YLivay/titlex/scan"
	"github.com/YLivay/titlex/sink"
)

// ErrIO wraps every failure to open, read, write or flush either file.
var ErrIO = errors.New("i/o error")

// Stats summarizes a run.
type Stats struct {
	Mode   Mode
	Format reader.Format

	// Bytes consumed from the (decompressed) input.
	BytesRead int64
	// Blocks read in ModeBytes.
	Blocks int64
	// Lines read in ModeJSON.
	Lines int64

	Values       int64
	BytesWritten int64
	Malformed    int64

	// Largest carry fragment kept between two blocks.
	PeakCarry int

	// xxhash64 of the output.
	Digest  uint64
	Elapsed time.Duration
}

// ExtractFile extracts values from the file at inPath into a newly created
// file at outPath. The output file is created even if nothing is extracted.
func ExtractFile(ctx context.Context, inPath, outPath string, cfg Config) (stats Stats, err error) {
	in, format, cleanup, err := reader.Open(inPath, cfg.Decompress)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close input: %w", ErrIO, cerr)
		}
	}()

	out, err := os.Create(outPath)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: failed to create output: %w", ErrIO, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close output: %w", ErrIO, cerr)
		}
	}()

	stats, err = Run(ctx, in, out, cfg)
	stats.Format = format
	return stats, err
}

// Run extracts values from in and writes them to out, one per line, in
// input order. Output is flushed once at the end, and also when the run is
// cut short by an error that left out writable.
//
// Cancelling ctx stops the run between two blocks (or lines) and returns
// ctx.Err().
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) (Stats, error) {
	cc := cfg.withDefaults()
	if err := cc.validate(); err != nil {
		return Stats{Mode: cc.Mode}, err
	}

	if cc.Mode == ModeJSON {
		return runLines(ctx, in, out, cc)
	}
	return runBlocks(ctx, in, out, cc)
}

func runBlocks(ctx context.Context, in io.Reader, out io.Writer, cc Config) (stats Stats, err error) {
	start := time.Now()
	stats.Mode = ModeBytes

	scanner, err := scan.NewScanner(scan.Options{
		Marker:       cc.marker(),
		Terminator:   cc.Terminator,
		Boundaries:   cc.Boundaries,
		Policy:       cc.Policy,
		MaxCarry:     cc.MaxCarry,
		ValidateUTF8: cc.ValidateUTF8,
		OnMalformed: func(m *scan.MalformedValue) {
			stats.Malformed++
			if cc.OnMalformed != nil {
				cc.OnMalformed(m)
			}
		},
	})
	if err != nil {
		return stats, err
	}

	chunks := reader.NewChunkReader(in, cc.BlockSize)
	w := sink.NewWriter(out, cc.OutputBufferSize)
	defer func() {
		stats.Values = w.Values()
		stats.BytesWritten = w.Written()
		stats.Digest = w.Digest()
		stats.BytesRead = chunks.Offset()
		stats.Elapsed = time.Since(start)
	}()

	emit := func(v scan.Value) error {
		if err := w.WriteValue(v.Bytes); err != nil {
			return fmt.Errorf("%w: failed to write output: %w", ErrIO, err)
		}
		return nil
	}

	// abort flushes whatever was extracted before err happened. A flush
	// failure is secondary to err and dropped.
	abort := func(err error) (Stats, error) {
		_ = w.Finish()
		return stats, err
	}

	var (
		// Bytes carried over from the previous window. Owned by this loop and
		// never aliased with the chunk buffer.
		carry []byte
		// Scratch buffer holding carry+block when there is a carry.
		joined []byte
	)
	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		block, err := chunks.Next()
		final := false
		switch {
		case errors.Is(err, io.EOF):
			block, final = nil, true
		case err != nil:
			return abort(fmt.Errorf("%w: failed to read input: %w", ErrIO, err))
		default:
			stats.Blocks++
			final = chunks.Exhausted()
		}

		window := block
		if len(carry) > 0 {
			joined = append(append(joined[:0], carry...), block...)
			window = joined
		}

		rest, err := scanner.Scan(scan.Window{
			Data:   window,
			Offset: chunks.Offset() - int64(len(window)),
			Final:  final,
		}, emit)
		if err != nil {
			return abort(err)
		}

		// rest aliases the window, which the next read overwrites.
		carry = append(carry[:0], rest...)
		stats.PeakCarry = max(stats.PeakCarry, len(carry))

		if final {
			break
		}
	}

	if err := w.Finish(); err != nil {
		return stats, fmt.Errorf("%w: failed to flush output: %w", ErrIO, err)
	}
	return stats, nil
}
