// Command nanospeak is a terminal demo of the nanotts streaming pipeline:
// it reads markdown from a file or stdin, renders it with glamour for
// preview, and speaks it sentence by sentence through the configured
// engine while writing raw audio frames to stdout or a file.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	_ "github.com/nanospeak/nanospeak/internal/engines/dummy"
	_ "github.com/nanospeak/nanospeak/internal/engines/gtts"
	_ "github.com/nanospeak/nanospeak/internal/engines/piper"
	"github.com/nanospeak/nanospeak/internal/playback"
	"github.com/nanospeak/nanospeak/internal/synthcache"
	"github.com/nanospeak/nanospeak/internal/transcode"
	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

var (
	engineFlag         string
	outputFlag         string
	previewFlag        bool
	debugFlag          bool
	listFlag           bool
	workersFlag        int
	minTokensFlag      int
	maxTokensFlag      int
	cacheFlag          bool
	playFlag           bool
	piperModelPathFlag string
	gttsLanguageFlag   string
	gttsTLDFlag        string

	rootCmd = &cobra.Command{
		Use:   "nanospeak [FILE]",
		Short: "Stream markdown to speech, sentence by sentence",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
)

func run(cmd *cobra.Command, args []string) error {
	setupLogging(debugFlag)

	if listFlag {
		for name, doc := range nanotts.DefaultRegistry().List() {
			fmt.Printf("%-8s %s\n", name, doc)
		}
		return nil
	}

	text, err := readSource(args)
	if err != nil {
		return err
	}

	if previewFlag {
		if err := printPreview(text); err != nil {
			log.Warn("could not render preview", "error", err)
		}
	}

	opts := []nanotts.Option{
		nanotts.WithWorkerCount(workersFlag),
		nanotts.WithTokenBounds(minTokensFlag, maxTokensFlag),
		nanotts.WithTranscoder(transcode.New()),
		nanotts.WithDebug(debugFlag),
	}
	if playFlag {
		// oto only reliably opens a device at 44100 or 48000 Hz; the
		// pipeline's 16kHz default isn't a supported playback rate, so ask
		// the transcoder to resample before chunks reach the speaker.
		spec := nanotts.DefaultOutputSpec()
		spec.SampleRate = 44100
		opts = append(opts, nanotts.WithOutputSpec(spec))
	}
	engineOpt, err := resolveEngineOption(engineFlag)
	if err != nil {
		return err
	}
	if engineOpt != nil {
		opts = append(opts, engineOpt)
	}

	p, err := nanotts.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	it, err := p.Stream(text)
	if err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	var player *playback.Player
	var out io.Writer
	var closeOut func()
	if playFlag {
		player, err = playback.New(p.OutputSpec())
		if err != nil {
			return fmt.Errorf("opening audio output device: %w", err)
		}
	} else {
		out, closeOut, err = openOutput(outputFlag)
		if err != nil {
			return err
		}
		defer closeOut()
	}

	var writer *bufio.Writer
	if out != nil {
		writer = bufio.NewWriter(out)
		defer writer.Flush()
	}

	var total int
	start := time.Now()
	for {
		chunk, segment, ok := it.Next()
		if !ok {
			break
		}
		if player != nil {
			if err := player.Play(chunk); err != nil {
				return fmt.Errorf("playing audio: %w", err)
			}
		} else if _, err := writer.Write(chunk.Data); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}
		total += len(chunk.Data)
		log.Debug("synthesized segment", "text", segment, "bytes", len(chunk.Data))
	}
	log.Info("stream complete", "bytes", humanize.Bytes(uint64(total)), "elapsed", time.Since(start))
	return nil
}

// resolveEngineOption selects a model by name, leaving the default dummy
// engine in place when engine is empty. When --cache is set, it resolves
// the named engine directly from the registry and wraps it with an LRU
// cache before handing it to the pipeline via WithEngine, since WithModel
// alone has no hook for decorating the resolved engine.
func resolveEngineOption(engine string) (nanotts.Option, error) {
	if engine == "" {
		return nil, nil
	}
	if !cacheFlag {
		return nanotts.WithModel(engine, engineKwargs(engine)), nil
	}

	e, err := nanotts.DefaultRegistry().Get(engine, engineKwargs(engine))
	if err != nil {
		return nil, fmt.Errorf("resolving engine %q: %w", engine, err)
	}
	return nanotts.WithEngine(synthcache.Wrap(engine, e, synthcache.New(synthcache.DefaultCapacity))), nil
}

func engineKwargs(engine string) map[string]any {
	switch engine {
	case "piper":
		return map[string]any{"model_path": piperModelPathFlag}
	case "gtts":
		return map[string]any{"language": gttsLanguageFlag, "tld": gttsTLDFlag}
	default:
		return nil
	}
}

func readSource(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", args[0], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func printPreview(text string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(previewWidth()),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(text)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stderr, out)
	return nil
}

// previewWidth caps the rendered width at 80 columns, or narrower if
// stderr is a smaller terminal.
func previewWidth() int {
	const maxWidth = 80
	w, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || w <= 0 || w > maxWidth {
		return maxWidth
	}
	return w
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func setupLogging(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func configDirs() []string {
	scope := gap.NewScope(gap.User, "nanospeak")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil
	}
	return dirs
}

func loadConfigFile() {
	for _, dir := range configDirs() {
		viper.AddConfigPath(dir)
	}
	viper.SetConfigName("nanospeak")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("nanospeak")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("could not parse configuration file", "error", err)
		}
	} else {
		log.Debug("using configuration file", "path", viper.ConfigFileUsed())
	}
}

func init() {
	loadConfigFile()

	rootCmd.Flags().StringVarP(&engineFlag, "engine", "e", "", "synthesis engine (dummy, mock, piper, gtts); defaults to silent dummy")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "write raw audio to this path instead of stdout")
	rootCmd.Flags().BoolVarP(&previewFlag, "preview", "p", false, "render the source as markdown to stderr before speaking")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&listFlag, "list-engines", false, "list registered engines and exit")
	rootCmd.Flags().IntVarP(&workersFlag, "workers", "w", 1, "number of concurrent synthesis workers")
	rootCmd.Flags().IntVar(&minTokensFlag, "min-tokens", 10, "minimum tokens per segment before a soft break is allowed")
	rootCmd.Flags().IntVar(&maxTokensFlag, "max-tokens", 50, "maximum tokens per segment before a break is forced")
	rootCmd.Flags().BoolVar(&cacheFlag, "cache", false, "cache synthesized audio in memory, keyed on engine and segment text")
	rootCmd.Flags().BoolVar(&playFlag, "play", false, "play audio through the default output device instead of writing it")
	rootCmd.Flags().StringVar(&piperModelPathFlag, "piper-model-path", viper.GetString("piper.model_path"), "path to a piper .onnx voice model")
	rootCmd.Flags().StringVar(&gttsLanguageFlag, "gtts-language", firstNonEmpty(viper.GetString("gtts.language"), "en"), "gtts-cli target language code")
	rootCmd.Flags().StringVar(&gttsTLDFlag, "gtts-tld", firstNonEmpty(viper.GetString("gtts.tld"), "com"), "gtts-cli Google Translate top-level domain")
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
