package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YLivay/titlex/reader"
	"github.com/YLivay/titlex/scan"
	"github.com/YLivay/titlex/utils"
)

const twoTitles = "foo \"title\": \"Hello\"\nbar \"title\": \"World\"\n"

func runString(t *testing.T, input string, cfg Config) (string, Stats) {
	t.Helper()

	var out bytes.Buffer
	stats, err := Run(context.Background(), strings.NewReader(input), &out, cfg)
	require.NoError(t, err)
	return out.String(), stats
}

func TestRun_OneBlock(t *testing.T) {
	got, stats := runString(t, twoTitles, Config{BlockSize: 1024})

	assert.EqualValues(t, "Hello\nWorld\n", got)
	assert.EqualValues(t, 2, stats.Values)
	assert.EqualValues(t, 12, stats.BytesWritten)
	assert.EqualValues(t, len(twoTitles), stats.BytesRead)
	assert.EqualValues(t, 1, stats.Blocks)
	assert.Zero(t, stats.Malformed)
	assert.Zero(t, stats.PeakCarry)
	assert.EqualValues(t, xxhash.Sum64String(got), stats.Digest)
}

func TestRun_ValueSplitAcrossBlocks(t *testing.T) {
	// The first block ends right after `"Hel`.
	require.EqualValues(t, `foo "title": "Hel`, twoTitles[:17])

	got, stats := runString(t, twoTitles, Config{BlockSize: 17})
	assert.EqualValues(t, "Hello\nWorld\n", got)
	assert.EqualValues(t, 3, stats.Blocks)
	assert.Positive(t, stats.PeakCarry)
}

func TestRun_EveryBlockSize(t *testing.T) {
	for _, policy := range []scan.Policy{scan.PolicyMarker, scan.PolicyRecord} {
		for size := 1; size <= len(twoTitles)+1; size++ {
			got, _ := runString(t, twoTitles, Config{BlockSize: size, Policy: policy})
			assert.EqualValues(t, "Hello\nWorld\n", got, "policy %v, block size %d", policy, size)
		}
	}
}

func TestRun_Unterminated(t *testing.T) {
	var reported []*scan.MalformedValue
	got, stats := runString(t, `x "title": "Unterminated`, Config{
		BlockSize: 5,
		OnMalformed: func(m *scan.MalformedValue) {
			reported = append(reported, m)
		},
	})

	assert.EqualValues(t, "Unterminated\n", got)
	assert.EqualValues(t, 1, stats.Malformed)
	require.Len(t, reported, 1)
	assert.EqualValues(t, scan.ReasonUnterminated, reported[0].Reason)
	assert.EqualValues(t, 2, reported[0].Offset)
	assert.EqualValues(t, "Unterminated", reported[0].Preview)
}

func TestRun_NoMatches(t *testing.T) {
	got, stats := runString(t, "nothing to see here\n{\"name\": \"x\"}\n", Config{BlockSize: 4})
	assert.Empty(t, got)
	assert.Zero(t, stats.Values)
}

func TestRun_EmptyValue(t *testing.T) {
	got, _ := runString(t, `"title": ""`+"\n"+`"title": "a"`, Config{BlockSize: 3})
	assert.EqualValues(t, "\na\n", got)
}

func TestRun_CustomField(t *testing.T) {
	input := `{"name": "one", "title": "skip"}` + "\n" + `{"name": "two"}`
	got, _ := runString(t, input, Config{BlockSize: 7, Field: "name"})
	assert.EqualValues(t, "one\ntwo\n", got)
}

func TestRun_CustomMarkerAndTerminator(t *testing.T) {
	input := "a title=first; b title=second;"
	got, _ := runString(t, input, Config{BlockSize: 4, Marker: []byte("title="), Terminator: ';'})
	assert.EqualValues(t, "first\nsecond\n", got)
}

func TestRun_InvalidUTF8(t *testing.T) {
	var reasons []scan.Reason
	got, stats := runString(t, "\"title\": \"b\xffd\"\n", Config{
		ValidateUTF8: true,
		OnMalformed: func(m *scan.MalformedValue) {
			reasons = append(reasons, m.Reason)
		},
	})

	// Written regardless.
	assert.EqualValues(t, "b\xffd\n", got)
	assert.EqualValues(t, 1, stats.Malformed)
	assert.EqualValues(t, []scan.Reason{scan.ReasonInvalidUTF8}, reasons)
}

func TestRun_CarryOverflow(t *testing.T) {
	var out bytes.Buffer
	input := `x "title": "` + strings.Repeat("v", 100) + `"` + "\n"

	_, err := Run(context.Background(), strings.NewReader(input), &out, Config{BlockSize: 4, MaxCarry: 8})
	assert.ErrorIs(t, err, scan.ErrMalformedValue)

	var m *scan.MalformedValue
	require.ErrorAs(t, err, &m)
	assert.EqualValues(t, scan.ReasonCarryOverflow, m.Reason)
}

func TestRun_OverflowKeepsEarlierValues(t *testing.T) {
	var out bytes.Buffer
	input := `"title": "ok"` + "\n" + `"title": "` + strings.Repeat("v", 100) + `"`

	_, err := Run(context.Background(), strings.NewReader(input), &out, Config{BlockSize: 16, MaxCarry: 32})
	assert.ErrorIs(t, err, scan.ErrMalformedValue)
	assert.EqualValues(t, "ok\n", out.String())
}

func TestRun_InvalidConfig(t *testing.T) {
	var out bytes.Buffer

	_, err := Run(context.Background(), strings.NewReader(twoTitles), &out, Config{Terminator: 0xc3})
	assert.Error(t, err)

	_, err = Run(context.Background(), strings.NewReader(twoTitles), &out, Config{Boundaries: []byte{'\n', 0xff}})
	assert.Error(t, err)

	assert.Zero(t, out.Len())
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, mode := range []Mode{ModeBytes, ModeJSON} {
		var out bytes.Buffer
		_, err := Run(ctx, strings.NewReader(twoTitles), &out, Config{Mode: mode})
		assert.ErrorIs(t, err, context.Canceled, mode.String())
	}
}

type failingWriter struct {
	err error
}

func (f failingWriter) Write(p []byte) (int, error) {
	return 0, f.err
}

func TestRun_WriteFailure(t *testing.T) {
	boom := errors.New("disk full")

	for _, mode := range []Mode{ModeBytes, ModeJSON} {
		input := `{"title": "Hello"}` + "\n"
		_, err := Run(context.Background(), strings.NewReader(input), failingWriter{boom}, Config{Mode: mode})
		assert.ErrorIs(t, err, ErrIO, mode.String())
		assert.ErrorIs(t, err, boom, mode.String())
	}
}

func TestRun_ReadFailure(t *testing.T) {
	boom := errors.New("bad sector")
	var out bytes.Buffer

	_, err := Run(context.Background(), errReader{boom}, &out, Config{})
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, boom)
}

type errReader struct {
	err error
}

func (r errReader) Read(p []byte) (int, error) {
	return 0, r.err
}

func TestRun_JSONModeMatchesBytesMode(t *testing.T) {
	input := strings.Join([]string{
		`2024-05-01T10:00:00Z INFO {"title": "Hello", "n": 1}`,
		`2024-05-01T10:00:01Z INFO no json on this line`,
		`2024-05-01T10:00:02Z WARN {"id": 7, "title": "World"}`,
		`{"title": "naïve café"}`,
		`{"other": "x"}`,
		`{"title": 5}`,
	}, "\n") + "\n"

	byBytes, bs := runString(t, input, Config{BlockSize: 9})
	byJSON, js := runString(t, input, Config{Mode: ModeJSON})

	assert.EqualValues(t, "Hello\nWorld\nnaïve café\n", byBytes)
	assert.EqualValues(t, byBytes, byJSON)
	assert.EqualValues(t, bs.Digest, js.Digest)
	assert.EqualValues(t, 6, js.Lines)
	assert.EqualValues(t, len(input), js.BytesRead)
}

func TestRun_JSONModeSkipsInvalidLines(t *testing.T) {
	var reported []*scan.MalformedValue
	input := "{\"title\": \"a\"\n{\"title\": \"b\"}\n"

	got, stats := runString(t, input, Config{
		Mode: ModeJSON,
		OnMalformed: func(m *scan.MalformedValue) {
			reported = append(reported, m)
		},
	})

	assert.EqualValues(t, "b\n", got)
	assert.EqualValues(t, 1, stats.Malformed)
	require.Len(t, reported, 1)
	assert.EqualValues(t, scan.ReasonInvalidJSON, reported[0].Reason)
	assert.EqualValues(t, 0, reported[0].Offset)
}

func TestRun_JSONModeLineTooLong(t *testing.T) {
	var out bytes.Buffer
	input := `{"title": "` + strings.Repeat("v", 100) + `"}` + "\n"

	_, err := Run(context.Background(), strings.NewReader(input), &out, Config{Mode: ModeJSON, MaxCarry: 32})
	assert.ErrorIs(t, err, scan.ErrMalformedValue)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("JSON")
	assert.NoError(t, err)
	assert.EqualValues(t, ModeJSON, m)

	m, err = ParseMode("")
	assert.NoError(t, err)
	assert.EqualValues(t, ModeBytes, m)

	_, err = ParseMode("xml")
	assert.Error(t, err)
}

func TestMarkerFor(t *testing.T) {
	assert.EqualValues(t, `"title": "`, MarkerFor("title"))
}

func TestExtractFile(t *testing.T) {
	in := utils.CreateTestPath(t, "in.log", []byte(twoTitles))
	out := filepath.Join(t.TempDir(), "out.txt")

	stats, err := ExtractFile(context.Background(), in, out, Config{BlockSize: 17})
	require.NoError(t, err)

	assert.EqualValues(t, "Hello\nWorld\n", utils.ReadTestFile(t, out))
	assert.EqualValues(t, reader.FormatPlain, stats.Format)
}

func TestExtractFile_EmptyInput(t *testing.T) {
	in := utils.CreateTestPath(t, "empty.log", nil)
	out := filepath.Join(t.TempDir(), "out.txt")

	stats, err := ExtractFile(context.Background(), in, out, Config{})
	require.NoError(t, err)

	assert.FileExists(t, out)
	assert.Empty(t, utils.ReadTestFile(t, out))
	assert.Zero(t, stats.Values)
}

func TestExtractFile_RunsAreIdentical(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, "%d INFO {\"id\": %d, \"title\": \"entry number %d\"}\n", i, i, i)
	}
	in := utils.CreateTestPath(t, "in.log", []byte(sb.String()))
	dir := t.TempDir()

	first, err := ExtractFile(context.Background(), in, filepath.Join(dir, "a.txt"), Config{BlockSize: 333})
	require.NoError(t, err)
	second, err := ExtractFile(context.Background(), in, filepath.Join(dir, "b.txt"), Config{BlockSize: 333})
	require.NoError(t, err)

	assert.EqualValues(t, 500, first.Values)
	assert.EqualValues(t, first.Digest, second.Digest)
	assert.EqualValues(t,
		utils.ReadTestFile(t, filepath.Join(dir, "a.txt")),
		utils.ReadTestFile(t, filepath.Join(dir, "b.txt")))
}

func TestExtractFile_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(twoTitles))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	in := utils.CreateTestPath(t, "in.log.gz", buf.Bytes())
	out := filepath.Join(t.TempDir(), "out.txt")

	stats, err := ExtractFile(context.Background(), in, out, Config{Decompress: true, BlockSize: 8})
	require.NoError(t, err)

	assert.EqualValues(t, "Hello\nWorld\n", utils.ReadTestFile(t, out))
	assert.EqualValues(t, reader.FormatGzip, stats.Format)
	assert.EqualValues(t, len(twoTitles), stats.BytesRead)
}

func TestExtractFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	_, err := ExtractFile(context.Background(), filepath.Join(dir, "nope.log"), out, Config{})
	assert.ErrorIs(t, err, ErrIO)
	assert.NoFileExists(t, out)
}

func TestExtractFile_UnwritableOutput(t *testing.T) {
	in := utils.CreateTestPath(t, "in.log", []byte(twoTitles))

	_, err := ExtractFile(context.Background(), in, filepath.Join(t.TempDir(), "missing", "out.txt"), Config{})
	assert.ErrorIs(t, err, ErrIO)
}

func BenchmarkRun(b *testing.B) {
	var sb strings.Builder
	for sb.Len() < 8<<20 {
		fmt.Fprintf(&sb, "2024-05-01T10:00:00Z INFO {\"id\": %d, \"level\": \"info\", \"title\": \"benchmark entry %d\", \"tags\": [\"a\", \"b\"]}\n", sb.Len(), sb.Len())
	}
	input := []byte(sb.String())

	for _, mode := range []Mode{ModeBytes, ModeJSON} {
		b.Run(mode.String(), func(b *testing.B) {
			b.SetBytes(int64(len(input)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Run(context.Background(), bytes.NewReader(input), discard{}, Config{Mode: mode, BlockSize: 1 << 20}); err != nil {
					b.Fatalf("Run: %v", err)
				}
			}
		})
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) {
	return len(p), nil
}
