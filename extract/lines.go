package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/itchyny/gojq"

	"github.com/YLivay/titlex/reader"
	"github.com/YLivay/titlex/scan"
	"github.com/YLivay/titlex/sink"
)

// fieldQuery looks a field up by name. Non-string results are ignored by
// the caller, and lookups on non-objects fail, which is ignored as well.
var fieldQuery = mustCompile(".[$field]", "$field")

func mustCompile(src string, vars ...string) *gojq.Code {
	query, err := gojq.Parse(src)
	if err != nil {
		panic(fmt.Sprintf("extract: bad query %q: %v", src, err))
	}
	code, err := gojq.Compile(query, gojq.WithVariables(vars))
	if err != nil {
		panic(fmt.Sprintf("extract: failed to compile %q: %v", src, err))
	}
	return code
}

// runLines is the reference path: every line holding a '{' has the text from
// that brace on decoded as JSON, and the configured field is written if it
// is a string. Lines that do not decode are reported as malformed and
// skipped.
func runLines(ctx context.Context, in io.Reader, out io.Writer, cc Config) (stats Stats, err error) {
	start := time.Now()
	stats.Mode = ModeJSON

	lines := reader.NewLineScanner(in, cc.MaxCarry)
	w := sink.NewWriter(out, cc.OutputBufferSize)
	defer func() {
		stats.Values = w.Values()
		stats.BytesWritten = w.Written()
		stats.Digest = w.Digest()
		stats.Elapsed = time.Since(start)
	}()

	abort := func(err error) (Stats, error) {
		_ = w.Finish()
		return stats, err
	}

	for lines.Scan() {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		line := lines.Bytes()
		stats.Lines++
		stats.BytesRead = lines.End()

		brace := bytes.IndexByte(line, '{')
		if brace < 0 {
			continue
		}

		var doc any
		if err := json.Unmarshal(line[brace:], &doc); err != nil {
			stats.Malformed++
			if cc.OnMalformed != nil {
				cc.OnMalformed(scan.NewMalformed(lines.Offset()+int64(brace), scan.ReasonInvalidJSON, line[brace:]))
			}
			continue
		}

		iter := fieldQuery.Run(doc, cc.Field)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			s, ok := v.(string)
			if !ok {
				continue
			}
			if err := w.WriteValue([]byte(s)); err != nil {
				return abort(fmt.Errorf("%w: failed to write output: %w", ErrIO, err))
			}
		}
	}

	if err := lines.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return abort(scan.NewMalformed(stats.BytesRead, scan.ReasonCarryOverflow, nil))
		}
		return abort(fmt.Errorf("%w: failed to read input: %w", ErrIO, err))
	}

	if err := w.Finish(); err != nil {
		return stats, fmt.Errorf("%w: failed to flush output: %w", ErrIO, err)
	}
	return stats, nil
}
