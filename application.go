package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YLivay/titlex/extract"
	"github.com/YLivay/titlex/log"
	"github.com/YLivay/titlex/scan"
	"github.com/YLivay/titlex/utils"
)

// Width of value previews in warnings, in terminal cells.
const previewWidth = 48

type Application struct {
	v *viper.Viper

	// Number of malformed value warnings printed so far.
	warnings int
}

func NewApplication() *Application {
	v := viper.New()
	v.SetEnvPrefix("TITLEX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Application{v: v}
}

func newRootCommand(app *Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "titlex <input_file> <output_file>",
		Short: "Extract the title field from large JSON-ish log files",
		Long: `titlex streams a log file in large blocks and writes the value of every
"title": "..." field it finds to the output file, one per line, in input order.

Values are taken verbatim up to the next terminator byte; escaped quotes
inside a value are not supported. Use --mode json for a slower path that
decodes the JSON object on every line instead.

Options can also be set with TITLEX_* environment variables (for example
TITLEX_BLOCK_SIZE=64mb) or a config file passed with --config.`,
		// Any argument count other than two prints the usage and does nothing.
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return app.readConfigFile()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return cmd.Usage()
			}
			return app.Run(cmd.Context(), args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("mode", "bytes", "extraction mode: bytes or json")
	flags.String("field", extract.DefaultField, "name of the extracted field")
	flags.String("marker", "", "raw marker preceding a value, overrides --field")
	flags.String("terminator", `"`, "byte that ends a value")
	flags.String("boundaries", `\n}`, "bytes that close a record, Go escapes allowed")
	flags.String("policy", "marker", "carry policy: marker or record")
	flags.String("block-size", "32mb", "bytes read per block")
	flags.String("max-carry", "64mb", "largest fragment carried between blocks")
	flags.String("output-buffer", "1mb", "output buffer size")
	flags.Bool("decompress", true, "detect and decode gzip or zstd input")
	flags.Bool("validate-utf8", true, "warn about values that are not valid UTF-8")
	flags.Int("max-warnings", 20, "malformed value warnings to print, -1 for all")
	flags.BoolP("quiet", "q", false, "only print warnings and errors")

	if err := app.v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("failed to bind flags: %v", err))
	}

	return cmd
}

func (a *Application) readConfigFile() error {
	path := a.v.GetString("config")
	if path == "" {
		return nil
	}

	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func (a *Application) Run(ctx context.Context, inputFname, outputFname string) error {
	log.SetQuiet(a.v.GetBool("quiet"))

	cfg, err := a.config()
	if err != nil {
		return err
	}

	stats, err := extract.ExtractFile(ctx, inputFname, outputFname, cfg)
	if suppressed := stats.Malformed - int64(a.warnings); suppressed > 0 {
		log.Warnf("%d more malformed values not shown", suppressed)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted after %d values", stats.Values)
		}
		return err
	}

	log.Printf("Extracted %d values (%s) from %s of %s input in %s, digest %016x",
		stats.Values, utils.FormatSize(stats.BytesWritten), utils.FormatSize(stats.BytesRead),
		stats.Format, stats.Elapsed.Round(time.Millisecond), stats.Digest)
	log.Println("Processing complete.")
	return nil
}

// config builds the extraction config from flags, environment and config
// file, in viper's precedence order.
func (a *Application) config() (extract.Config, error) {
	var cfg extract.Config
	var err error

	if cfg.Mode, err = extract.ParseMode(a.v.GetString("mode")); err != nil {
		return cfg, err
	}
	if cfg.Policy, err = scan.ParsePolicy(a.v.GetString("policy")); err != nil {
		return cfg, err
	}

	sizes := []struct {
		key string
		dst *int
	}{
		{"block-size", &cfg.BlockSize},
		{"max-carry", &cfg.MaxCarry},
		{"output-buffer", &cfg.OutputBufferSize},
	}
	for _, s := range sizes {
		n, err := utils.ParseSize(a.v.GetString(s.key))
		if err != nil {
			return cfg, fmt.Errorf("--%s: %w", s.key, err)
		}
		if n <= 0 || n > 1<<40 {
			return cfg, fmt.Errorf("--%s: size %d out of range", s.key, n)
		}
		*s.dst = int(n)
	}

	cfg.Field = a.v.GetString("field")
	if marker := a.v.GetString("marker"); marker != "" {
		cfg.Marker = []byte(marker)
	}

	terminator, err := unescape(a.v.GetString("terminator"))
	if err != nil {
		return cfg, fmt.Errorf("--terminator: %w", err)
	}
	if len(terminator) != 1 {
		return cfg, fmt.Errorf("--terminator: want exactly one byte, got %q", terminator)
	}
	cfg.Terminator = terminator[0]

	boundaries, err := unescape(a.v.GetString("boundaries"))
	if err != nil {
		return cfg, fmt.Errorf("--boundaries: %w", err)
	}
	cfg.Boundaries = []byte(boundaries)

	cfg.Decompress = a.v.GetBool("decompress")
	cfg.ValidateUTF8 = a.v.GetBool("validate-utf8")

	maxWarnings := a.v.GetInt("max-warnings")
	cfg.OnMalformed = func(m *scan.MalformedValue) {
		if maxWarnings >= 0 && a.warnings >= maxWarnings {
			return
		}
		a.warnings++
		log.Warnf("%v: \"%s\"", m, utils.Preview(m.Preview, previewWidth))
	}

	return cfg, nil
}

// unescape interprets Go escape sequences such as \n or \x7d in s.
func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	return strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
}
