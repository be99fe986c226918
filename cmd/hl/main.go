// Package main implements hl, the high-throughput log viewer (spec §1).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/cortexlog/hl/internal/config"
	"github.com/cortexlog/hl/internal/interruptible"
	"github.com/cortexlog/hl/internal/pipeline"
	"github.com/cortexlog/hl/internal/sink"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "hl - Search and pretty-print structured logs, fast.\n")
	fmt.Fprintf(w, "Version %s (%s) built on %s by %s\n", version, commit, date, builtBy)
	if buildinfo, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(w, "    go: %v\n", buildinfo.GoVersion)
		for _, x := range buildinfo.Settings {
			fmt.Fprintf(w, "    %v: %v\n", x.Key, x.Value)
		}
	}
}

func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// loadConfigLayer reads one --config token as a go-flags INI file (the
// same flag library the CLI itself parses with) into its own Flags
// value, the way the teacher's jlog leaves config entirely to the flag
// parser but scaled up to spec §6's multi-layer chain.
func loadConfigLayer(path string) (config.Layer, error) {
	var f config.Flags
	p := flags.NewParser(&f, flags.IgnoreUnknown)
	ip := flags.NewIniParser(p)
	if err := ip.ParseFile(path); err != nil {
		return config.Layer{}, err
	}
	return config.Layer{Name: path, Flags: f}, nil
}

// resolveConfig applies the --config chain (spec §6's precedence list,
// simplified: a config-file layer only fills fields the CLI parse left
// at its zero value, since go-flags bakes `default:` tag values into cli
// before we ever see it; see DESIGN.md for the resulting limitation).
func resolveConfig(cli config.Flags) (*config.Resolved, error) {
	var layers []config.Layer
	for _, tok := range cli.Config {
		if tok == config.ClearToken {
			layers = nil
			continue
		}
		l, err := loadConfigLayer(tok)
		if err != nil {
			return nil, config.Wrap(config.KindConfig, "loading --config "+tok, err)
		}
		layers = append(layers, l)
	}
	layers = append(layers, config.Layer{Name: "cli", Flags: cli})
	merged := config.MergeLayers(layers...)
	return config.Resolve(merged)
}

func main() {
	os.Exit(run())
}

func run() int {
	var f config.Flags
	fp := flags.NewParser(&f, flags.HelpFlag|flags.PassDoubleDash)
	_, err := fp.Parse()
	if err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			printVersion(os.Stderr)
			fmt.Fprintln(os.Stderr, ferr.Message)
			return 2
		}
		fmt.Fprintf(os.Stderr, "flag parsing: %v\n", err)
		return 1
	}
	if f.Version {
		printVersion(os.Stdout)
		return 0
	}
	if f.ListThemes != "" {
		fmt.Println("default")
		return 0
	}

	r, err := resolveConfig(f)
	if err != nil {
		return reportError(err)
	}
	if len(r.Inputs) == 0 {
		r.Inputs = []string{"-"}
	}

	out := os.Stdout
	colorEnabled := r.ResolveColor(out)

	sets := &fileSetLoader{stdin: os.Stdin}
	rt, err := buildRuntime(r, colorEnabled, sets)
	if err != nil {
		return reportError(err)
	}

	if r.DumpIndex {
		if err := runDumpIndex(out, r, r.Inputs); err != nil {
			return reportError(err)
		}
		return 0
	}

	s, err := sink.New(sink.Config{Path: r.OutputPath})
	if err != nil {
		return reportError(config.Wrap(config.KindSink, "opening output sink", err))
	}

	sig := interruptible.NewSignals(3, os.Interrupt, syscall.SIGPIPE)
	defer sig.Stop()

	ctx := context.Background()
	var malformed uint64
	var runErr error
	switch {
	case r.Follow:
		malformed, runErr = runFollow(ctx, rt, r, pipeline.Sink(s), sig)
	case r.Sort:
		malformed, runErr = runSorted(ctx, rt, r, pipeline.Sink(s), sig)
	default:
		malformed, runErr = runStreaming(ctx, rt, r, pipeline.Sink(s), sig)
	}

	closeErr := s.Close()
	if runErr == nil {
		runErr = closeErr
	}

	if !r.Debug {
		printSummary(os.Stderr, malformed)
	}

	if runErr != nil {
		if sig.Count() > 0 && errors.Is(runErr, os.ErrClosed) {
			return 130
		}
		if errors.Is(runErr, syscall.EPIPE) {
			return 2
		}
		return reportError(runErr)
	}
	if sig.Count() > 0 {
		return 130
	}
	return 0
}

func printSummary(w io.Writer, malformed uint64) {
	if malformed == 0 {
		return
	}
	noun := "records"
	if malformed == 1 {
		noun = "record"
	}
	fmt.Fprintf(w, "hl: %d malformed %s skipped\n", malformed, noun)
}

// reportError maps a config.Error (or any other error) to an exit code
// the way the teacher's main maps EPIPE/other failures, generalized to
// spec §7's typed Kind taxonomy.
func reportError(err error) int {
	var cerr *config.Error
	if errors.As(err, &cerr) {
		fmt.Fprintf(os.Stderr, "hl: %v\n", cerr)
		return cerr.Kind.ExitCode()
	}
	msg := err.Error()
	if strings.Contains(msg, "broken pipe") || errors.Is(err, syscall.EPIPE) {
		return 2
	}
	fmt.Fprintf(os.Stderr, "hl: %v\n", err)
	return 1
}
