package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/archive"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/pipeline"
)

// #region main

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	archivePath := flag.String("archive", "", "optional SQLite archive for this run")
	skipMalformed := flag.Bool("skip-malformed", false, "skip unparseable lines instead of failing")
	flag.Parse()

	cfg, err := buildConfig(*configPath, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintln(os.Stderr, "Program terminated")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintln(os.Stderr, "Exiting...")
		os.Exit(1)
	}

	opts := pipeline.Options{SkipMalformed: *skipMalformed}

	var store *archive.Store
	var runID string
	if *archivePath != "" {
		store, err = archive.NewStore(*archivePath)
		if err != nil {
			log.Fatalf("failed to open archive: %v", err)
		}
		defer store.Close()

		runID, err = store.BeginRun(cfg)
		if err != nil {
			log.Fatalf("failed to begin archived run: %v", err)
		}
		opts.Sinks = append(opts.Sinks, store.Sink(runID))
	}

	sum, err := pipeline.RunWithOptions(os.Stdin, os.Stdout, cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if store != nil {
		if err := store.FinishRun(runID, sum.LinesRead, sum.Accepted, sum.Skipped, sum.Alarms); err != nil {
			log.Printf("failed to finish archived run: %v", err)
		}
	}
}

// #endregion main

// #region config

// buildConfig resolves the run configuration: built-in defaults, overlaid by
// an optional YAML file, overridden by the positional all-or-nothing form
// (sample_each initial_avg_diff points_to_alarm wait_state_usec multiplier
// smoothing_n pattern_state_usec).
func buildConfig(configPath string, args []string) (detector.Config, error) {
	cfg := detector.DefaultConfig()

	if configPath != "" {
		loaded, err := detector.LoadConfigFile(configPath, cfg)
		if err != nil {
			return detector.Config{}, err
		}
		cfg = loaded
	}

	switch len(args) {
	case 0:
		return cfg, nil
	case 7:
		vals := make([]int, 7)
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return detector.Config{}, fmt.Errorf("arguments parsing error (must pass 7 integer arguments): %w", err)
			}
			vals[i] = v
		}
		cfg.SampleEach = vals[0]
		cfg.InitialAvgDiff = vals[1]
		cfg.PointsToAlarm = vals[2]
		cfg.WaitStateUsec = vals[3]
		cfg.Multiplier = vals[4]
		cfg.SmoothingN = vals[5]
		cfg.PatternStateUsec = vals[6]
		return cfg, nil
	default:
		return detector.Config{}, fmt.Errorf(
			"arguments error: must pass 7 integer arguments or none\nNumber of arguments passed: %d", len(args))
	}
}

// #endregion config
