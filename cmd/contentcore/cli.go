package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hyperifyio/contentcore/internal/app"
	"github.com/hyperifyio/contentcore/internal/chunking"
	cerrors "github.com/hyperifyio/contentcore/internal/errors"
	"github.com/hyperifyio/contentcore/internal/gate"
	"github.com/hyperifyio/contentcore/internal/pipeline"
	"github.com/hyperifyio/contentcore/internal/selection"
	"github.com/hyperifyio/contentcore/internal/strategy"
)

// newCLIApp builds the command tree. Global flags configure the app; each
// command builds its own app.App from them.
func newCLIApp() *cli.App {
	a := &cli.App{
		Name:    "contentcore",
		Usage:   "Decide how to render, extract and chunk web pages",
		Version: fmt.Sprintf("%s (%s, %s)", app.BuildVersion, app.BuildCommit, app.BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML or JSON config file"},
			&cli.StringSliceFlag{Name: "env-file", Value: cli.NewStringSlice(".env"), Usage: "dotenv files to load before reading the environment"},
			&cli.BoolFlag{Name: "verbose", Usage: "Debug logging"},
			&cli.BoolFlag{Name: "json", Usage: "Print machine-readable JSON"},
			&cli.Float64Flag{Name: "gate.hi", Value: gate.DefaultHi, Usage: "Headless threshold in [0,1]"},
			&cli.Float64Flag{Name: "gate.lo", Value: gate.DefaultLo, Usage: "Raw threshold in [0,1]"},
			&cli.BoolFlag{Name: "probe-first", Usage: "Try local extraction before headless rendering for SPA pages"},
			&cli.StringFlag{Name: "cache.backend", Value: app.CacheMemory, Usage: "Selection cache: memory|disk|sqlite|none"},
			&cli.StringFlag{Name: "cache.dir", Usage: "Directory for disk and sqlite caches"},
			&cli.DurationFlag{Name: "cache.ttl", Usage: "Selection cache TTL"},
			&cli.StringFlag{Name: "render.url", Usage: "Headless render service base URL"},
			&cli.BoolFlag{Name: "ignore-robots", Usage: "Probe URLs without consulting robots.txt"},
		},
		Before: func(c *cli.Context) error {
			if err := app.LoadEnvFiles(c.StringSlice("env-file")...); err != nil {
				return err
			}
			setLogLevel(c.Bool("verbose") || envTruthy("VERBOSE"))
			return nil
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			processCmd(),
			chunkCmd(),
			strategyCmd(),
			enginesCmd(),
			cacheCmd(),
		},
	}
	a.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return a
}

func setLogLevel(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func envTruthy(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// loadConfig layers defaults, the config file, the environment and finally
// the flags the user set explicitly.
func loadConfig(c *cli.Context) (app.Config, error) {
	cfg := app.DefaultConfig()
	if path := c.String("config"); path != "" {
		fc, err := app.LoadConfigFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
		app.ApplyEnvOverrides(&cfg)
	} else {
		app.ApplyEnvToConfig(&cfg)
	}
	if c.IsSet("gate.hi") {
		cfg.GateHi = c.Float64("gate.hi")
	}
	if c.IsSet("gate.lo") {
		cfg.GateLo = c.Float64("gate.lo")
	}
	if c.IsSet("probe-first") {
		cfg.ProbeFirstSPA = c.Bool("probe-first")
	}
	if c.IsSet("cache.backend") {
		cfg.CacheBackend = c.String("cache.backend")
	}
	if c.IsSet("cache.dir") {
		cfg.CacheDir = c.String("cache.dir")
	}
	if c.IsSet("cache.ttl") {
		cfg.CacheTTL = c.Duration("cache.ttl")
	}
	if c.IsSet("render.url") {
		cfg.RenderURL = c.String("render.url")
	}
	if c.IsSet("ignore-robots") {
		cfg.IgnoreRobots = c.Bool("ignore-robots")
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}
	setLogLevel(cfg.Verbose)
	return cfg, app.ValidateConfig(cfg)
}

func openApp(c *cli.Context) (*app.App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, outputError(err)
	}
	a, err := app.New(c.Context, cfg)
	if err != nil {
		return nil, outputError(err)
	}
	return a, nil
}

var pageFlags = []cli.Flag{
	&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the page from a file instead of fetching it (- for stdin)"},
	&cli.StringFlag{Name: "url", Usage: "Page URL when reading from --file"},
	&cli.StringFlag{Name: "content-type", Usage: "Content type when reading from --file", Value: "text/html"},
}

// readPage loads the page named by --file or fetches the URL argument.
func readPage(c *cli.Context, a *app.App) (pipeline.Page, error) {
	if path := c.String("file"); path != "" {
		body, err := readInput(c, path)
		if err != nil {
			return pipeline.Page{}, err
		}
		u := c.String("url")
		if u == "" && c.NArg() > 0 {
			u = c.Args().First()
		}
		return pipeline.Page{HTML: body, URL: u, ContentType: c.String("content-type")}, nil
	}
	if c.NArg() == 0 {
		return pipeline.Page{}, cli.Exit("a URL argument or --file is required", 2)
	}
	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()
	return a.Fetch(ctx, c.Args().First())
}

func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.App.Reader)
	}
	return os.ReadFile(path)
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Score a page and recommend a render path, engine, strategy and chunking",
		ArgsUsage: "[url]",
		Flags:     pageFlags,
		Action: func(c *cli.Context) error {
			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.Close()
			page, err := readPage(c, a)
			if err != nil {
				return outputError(err)
			}
			r := a.Analyzer().Analyze(c.Context, page)
			if c.Bool("json") {
				return outputJSON(c.App.Writer, r)
			}
			printResult(c.App.Writer, r)
			return nil
		},
	}
}

func processCmd() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Analyze, follow up with probe or render, extract and chunk a page",
		ArgsUsage: "[url]",
		Flags:     pageFlags,
		Action: func(c *cli.Context) error {
			a, err := openApp(c)
			if err != nil {
				return err
			}
			defer a.Close()
			page, err := readPage(c, a)
			if err != nil {
				return outputError(err)
			}
			out, err := a.Analyzer().Process(c.Context, page)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(c.App.Writer, out)
			}
			printResult(c.App.Writer, out.Result)
			fmt.Fprintf(c.App.Writer, "probed: %v  rendered: %v  title: %q\n", out.Probed, out.Rendered, out.Document.Title)
			printChunks(c.App.Writer, out.Chunks)
			return nil
		},
	}
}

func chunkCmd() *cli.Command {
	return &cli.Command{
		Name:      "chunk",
		Usage:     "Chunk text from a file or stdin",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "render-mode", Usage: "Use the configured chunking for this render mode"},
			&cli.StringFlag{Name: "mode", Value: string(chunking.KindSliding), Usage: "sliding|fixed|sentence|regex|html_aware|topic"},
			&cli.IntFlag{Name: "token-max", Value: chunking.DefaultTokenMax},
			&cli.IntFlag{Name: "overlap", Value: 120},
			&cli.IntFlag{Name: "window"},
			&cli.IntFlag{Name: "size", Value: 1000},
			&cli.BoolFlag{Name: "by-tokens"},
			&cli.IntFlag{Name: "max-sentences", Value: 5},
			&cli.StringFlag{Name: "pattern"},
			&cli.IntFlag{Name: "min-chunk-size"},
			&cli.BoolFlag{Name: "preserve-blocks"},
			&cli.BoolFlag{Name: "preserve-structure"},
			&cli.BoolFlag{Name: "topic-disabled"},
			&cli.IntFlag{Name: "window-size", Value: 3},
			&cli.IntFlag{Name: "smoothing-passes", Value: 2},
			&cli.Float64Flag{Name: "threshold"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := chunkConfig(c)
			if err != nil {
				return outputError(err)
			}
			path := "-"
			if c.NArg() > 0 {
				path = c.Args().First()
			}
			text, err := readInput(c, path)
			if err != nil {
				return outputError(err)
			}
			start := time.Now()
			chunks, err := chunking.Split(string(text), cfg)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(c.App.Writer, chunks)
			}
			fmt.Fprintf(c.App.Writer, "%s of input, %d chunks in %s\n",
				humanize.Bytes(uint64(len(text))), len(chunks), time.Since(start).Round(time.Microsecond))
			printChunks(c.App.Writer, chunks)
			return nil
		},
	}
}

func chunkConfig(c *cli.Context) (chunking.Config, error) {
	if rm := c.String("render-mode"); rm != "" {
		mode, err := strategy.ParseRenderMode(rm)
		if err != nil {
			return chunking.Config{}, err
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return chunking.Config{}, err
		}
		table, err := strategy.DefaultTable().WithOverrides(cfg.Chunking)
		if err != nil {
			return chunking.Config{}, err
		}
		return table.For(mode), nil
	}
	s := chunking.Settings{
		Mode:                c.String("mode"),
		TokenMax:            c.Int("token-max"),
		Overlap:             c.Int("overlap"),
		PreserveSentences:   true,
		Deterministic:       true,
		Window:              c.Int("window"),
		Size:                c.Int("size"),
		ByTokens:            c.Bool("by-tokens"),
		MaxSentences:        c.Int("max-sentences"),
		Pattern:             c.String("pattern"),
		MinChunkSize:        c.Int("min-chunk-size"),
		PreserveBlocks:      c.Bool("preserve-blocks"),
		PreserveStructure:   c.Bool("preserve-structure"),
		TopicDisabled:       c.Bool("topic-disabled"),
		WindowSize:          c.Int("window-size"),
		SmoothingPasses:     c.Int("smoothing-passes"),
		SimilarityThreshold: c.Float64("threshold"),
	}
	return s.Config()
}

func strategyCmd() *cli.Command {
	return &cli.Command{
		Name:      "strategy",
		Usage:     "Show the extraction strategy for a URL and the chunking for a render mode",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "render-mode", Value: string(strategy.RenderHTML)},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("a URL argument is required", 2)
			}
			mode, err := strategy.ParseRenderMode(c.String("render-mode"))
			if err != nil {
				return outputError(err)
			}
			out := struct {
				URL        string              `json:"url"`
				Strategy   strategy.Envelope   `json:"strategy"`
				RenderMode strategy.RenderMode `json:"render_mode"`
				Chunking   chunking.Settings   `json:"chunking"`
			}{
				URL:        c.Args().First(),
				Strategy:   strategy.EnvelopeOf(strategy.Select(c.Args().First())),
				RenderMode: mode,
				Chunking:   chunking.SettingsOf(strategy.SelectChunking(mode)),
			}
			if c.Bool("json") {
				return outputJSON(c.App.Writer, out)
			}
			w := c.App.Writer
			fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint("strategy:"), out.Strategy.Type)
			for _, k := range sortedSelectorKeys(out.Strategy.Selectors) {
				fmt.Fprintf(w, "  %-10s %s\n", k, out.Strategy.Selectors[k])
			}
			for _, p := range out.Strategy.Patterns {
				fmt.Fprintf(w, "  %-10s %s\n", p.Name, p.Pattern)
			}
			fmt.Fprintf(w, "%s %s (%s, tokenMax %d, overlap %d)\n", color.New(color.Bold).Sprint("chunking:"),
				mode, out.Chunking.Mode, out.Chunking.TokenMax, out.Chunking.Overlap)
			return nil
		},
	}
}

func enginesCmd() *cli.Command {
	return &cli.Command{
		Name:  "engines",
		Usage: "List rendering engines and their capabilities",
		Action: func(c *cli.Context) error {
			engines := selection.ListEngines()
			if c.Bool("json") {
				return outputJSON(c.App.Writer, engines)
			}
			for _, e := range engines {
				js := "no"
				if e.ExecutesJS {
					js = color.YellowString("yes")
				}
				fmt.Fprintf(c.App.Writer, "%-9s cost %-3d latency %-8s js %-3s  %s\n",
					color.CyanString(e.Engine.String()), e.RelativeCost,
					humanize.Comma(int64(e.TypicalLatencyMS))+"ms", js, e.Description)
			}
			return nil
		},
	}
}

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Selection cache maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Drop expired entries and, for the disk backend, entries older than --max-age",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "max-age", Usage: "Also drop entries saved longer ago than this"},
				},
				Action: func(c *cli.Context) error {
					a, err := openApp(c)
					if err != nil {
						return err
					}
					defer a.Close()
					n, err := a.PurgeCache(c.Context, c.Duration("max-age"))
					if err != nil {
						return outputError(err)
					}
					if c.Bool("json") {
						return outputJSON(c.App.Writer, map[string]int{"removed": n})
					}
					fmt.Fprintf(c.App.Writer, "removed %s cache %s\n", humanize.Comma(int64(n)), plural(n, "entry", "entries"))
					return nil
				},
			},
		},
	}
}

func decisionColor(d gate.Decision) func(a ...interface{}) string {
	switch d {
	case gate.Raw:
		return color.New(color.FgGreen).SprintFunc()
	case gate.ProbesFirst:
		return color.New(color.FgYellow).SprintFunc()
	}
	return color.New(color.FgRed).SprintFunc()
}

func printResult(w io.Writer, r pipeline.Result) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", bold("url:"), r.URL)
	fmt.Fprintf(w, "%s %s of markup, %s visible characters, %d paragraphs, %d SPA markers\n", bold("page:"),
		humanize.Bytes(r.Features.HTMLByteLen), humanize.Comma(int64(r.Features.VisibleTextCharLen)),
		r.Features.ParagraphCount, r.Features.SPAMarkerCount)
	fmt.Fprintf(w, "%s %s (score %.1f)\n", bold("decision:"), decisionColor(r.Decision)(r.Decision.String()), r.Score)
	fmt.Fprintf(w, "%s %s (confidence %.1f)\n", bold("engine:"), color.CyanString(r.Engine.Engine.String()), r.Engine.Confidence)
	for _, reason := range r.Engine.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	fmt.Fprintf(w, "%s %s\n", bold("strategy:"), r.Strategy.Type)
	fmt.Fprintf(w, "%s %s via %s (tokenMax %d)\n", bold("chunking:"), r.RenderMode, r.Chunking.Mode, r.Chunking.TokenMax)
}

func printChunks(w io.Writer, chunks []chunking.Chunk) {
	for _, ch := range chunks {
		preview := strings.Join(strings.Fields(ch.Content), " ")
		if r := []rune(preview); len(r) > 72 {
			preview = string(r[:72]) + "…"
		}
		fmt.Fprintf(w, "%s %4d tokens  q=%.2f  %-10s %s\n",
			color.New(color.Faint).Sprintf("#%d", ch.Index), ch.TokenCount, ch.Metadata.QualityScore, ch.Metadata.ChunkType, preview)
	}
}

func sortedSelectorKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError turns err into a cli exit error. Configuration errors exit
// with status 2.
func outputError(err error) error {
	if _, ok := err.(cli.ExitCoder); ok {
		return err
	}
	if cerrors.GetCode(err) != "" {
		return cli.Exit(err.Error(), 2)
	}
	return cli.Exit(err.Error(), 1)
}
