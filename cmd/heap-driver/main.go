// Command heap-driver replays allocator traces against the heapmalloc
// allocator and reports utilization, or watches a directory for traces to
// replay as they arrive.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/orizon-lang/heapmalloc/internal/cli"
	"github.com/orizon-lang/heapmalloc/internal/config"
	"github.com/orizon-lang/heapmalloc/internal/trace"
)

func main() {
	var (
		showVersion   = flag.Bool("version", false, "show version information")
		jsonOutput    = flag.Bool("json", false, "output version in JSON format")
		configPath    = flag.String("config", "", "path to a heap-driver config file")
		arenaCapacity = flag.Int("arena", 0, "override the configured arena capacity in bytes")
		watchDir      = flag.String("watch", "", "watch this directory for *.trace files instead of replaying a single trace")
		verbose       = flag.Bool("verbose", false, "verbose logging")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <trace-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Replays an allocator trace and reports utilization.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s internal/trace/testdata/basic.trace\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -watch ./traces\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		cli.PrintVersion("heap-driver", *jsonOutput)
		os.Exit(0)
	}

	logger := cli.NewLogger(*verbose, *verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	if *arenaCapacity > 0 {
		cfg.ArenaCapacity = *arenaCapacity
	}

	if *watchDir == "" {
		*watchDir = cfg.WatchDir
	}

	if *watchDir != "" {
		runWatch(*watchDir, cfg, logger)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	runOnce(flag.Arg(0), cfg, logger)
}

func runOnce(path string, cfg *config.Config, logger *cli.Logger) {
	f, err := os.Open(path)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	defer f.Close()

	logger.Info("parsing trace %s", path)

	tr, err := trace.Parse(f)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	logger.Debug("parsed %d operations at format version %s", len(tr.Ops), tr.Version)

	stats, err := trace.Replay(tr, cfg.ArenaCapacity)
	if err != nil {
		cli.HandleError(err, logger)
	}

	fmt.Printf("ops:          %d\n", stats.Ops)
	fmt.Printf("peak payload: %d bytes\n", stats.PeakPayload)
	fmt.Printf("peak arena:   %d bytes\n", stats.PeakArenaBytes)
	fmt.Printf("utilization:  %.4f\n", stats.Utilization())
}

func runWatch(dir string, cfg *config.Config, logger *cli.Logger) {
	logger.Info("watching %s for *.trace files", dir)

	stop := make(chan struct{})
	events, err := trace.Watch(dir, cfg.ArenaCapacity, stop)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	for ev := range events {
		if ev.Err != nil {
			logger.Error("%s: %v", ev.Path, ev.Err)
			continue
		}

		fmt.Printf("%s: ops=%d utilization=%.4f\n", ev.Path, ev.Stats.Ops, ev.Stats.Utilization())
	}
}
