package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/civica/civica/internal"
	"github.com/civica/civica/pkg/logger"
	"github.com/joho/godotenv"
)

var log = logger.Get("Main")

// defaultConfigFile is used when it exists and no -config flag was
// given; all configuration also works via environment variables, so
// the file is optional.
const defaultConfigFile = "civica.yaml"

type typeList []string

func (l *typeList) String() string { return strings.Join(*l, ",") }

func (l *typeList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// main wires CLI flags over the file/env configuration, then hands
// control to the engine. The process exits non-zero when any download
// failed so callers can distinguish partial failure from success.
func main() {
	var types typeList
	configPath := flag.String("config", "", "path to YAML configuration file")
	catalogPath := flag.String("catalog", "", "CSV catalog of meetings to download")
	outputDir := flag.String("output", "", "output root directory")
	limit := flag.Int("limit", -1, "limit the number of meetings processed (0 = unlimited)")
	fromDate := flag.String("from", "", "only meetings on or after this date (YYYY-MM-DD)")
	untilDate := flag.String("until", "", "only meetings on or before this date (YYYY-MM-DD)")
	noVideo := flag.Bool("no-video", false, "skip video downloads")
	noAudio := flag.Bool("no-audio", false, "skip audio downloads")
	noDocs := flag.Bool("no-docs", false, "skip document downloads")
	workers := flag.Int("workers", 0, "number of concurrent download workers")
	showArchive := flag.Bool("show-archive", false, "print download archive statistics and exit")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	flag.Var(&types, "types", "meeting types to include (repeatable, comma-separated)")
	flag.Parse()

	if *verbose {
		logger.SetMinLoggingLevel(logger.VERBOSE)
	}

	// A .env alongside the binary is a convenience for development;
	// absence is not an error.
	godotenv.Load()

	if *configPath == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			*configPath = defaultConfigFile
		}
	}

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	if *catalogPath != "" {
		config.CatalogPath = *catalogPath
	}
	if *outputDir != "" {
		config.OutputDir = *outputDir
	}
	if *limit >= 0 {
		config.Limit = *limit
	}
	if *fromDate != "" {
		config.FromDate = *fromDate
	}
	if *untilDate != "" {
		config.UntilDate = *untilDate
	}
	if len(types) > 0 {
		config.MeetingTypes = types
	}
	if *workers > 0 {
		config.Concurrent.Workers = *workers
	}
	config.Include.Video = config.Include.Video && !*noVideo
	config.Include.Audio = config.Include.Audio && !*noAudio
	config.Include.Documents = config.Include.Documents && !*noDocs

	if err := config.Validate(); err != nil {
		fatal(err)
	}

	civica := internal.New(*config)
	if *showArchive {
		if err := civica.ShowArchive(os.Stdout); err != nil {
			fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := civica.Run(ctx)
	if err != nil {
		fatal(err)
	}

	summary.Render(os.Stdout)
	if summary.HasFailures() {
		os.Exit(1)
	}
}

func fatal(err error) {
	log.Emit(logger.FATAL, "%s\n", err.Error())
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
