// Copyright 2026 The Shardstream Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/shardstream/shardstream/lib/dataset"
	"github.com/shardstream/shardstream/lib/record"
	"github.com/shardstream/shardstream/lib/schema"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("shardcat", pflag.ContinueOnError)
	configPath := flags.String("config", "", "YAML file declaring named splits")
	schemaPath := flags.String("schema", "", "JSONC schema override file")
	splitName := flags.String("split", "train", "split to stream")
	workers := flags.Int("workers", 1, "concurrent shard workers; above 1, records interleave across shards")
	limit := flags.Int("limit", 0, "stop after this many records (0 = all)")
	logLevel := flags.String("log-level", "info", "log level: debug, info, warn, error")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: shardcat [flags] [shard.tar ...]\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if *showVersion {
		fmt.Printf("shardcat %s\n", version)
		return 0
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	splits, err := resolveSplits(*configPath, flags.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	options := []dataset.Option{dataset.WithLogger(logger), dataset.WithWorkers(*workers)}
	if *schemaPath != "" {
		s, err := schema.LoadFile(*schemaPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		options = append(options, dataset.WithSchema(s))
	}

	ds, err := dataset.New(splits, options...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if err := stream(ctx, ds, *splitName, *limit, *workers, out, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// resolveSplits builds the split set from either the config file or
// the positional shard paths, never both.
func resolveSplits(configPath string, args []string) ([]dataset.Split, error) {
	if configPath != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("pass shards positionally or via --config, not both")
		}
		return loadConfig(configPath)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no shards given (positional paths or --config)")
	}
	return []dataset.Split{{Name: "train", Shards: args}}, nil
}

// stream writes the split's records to out as JSON lines. Shard
// failures are logged and counted, not fatal: the point of shardcat
// is to see what is wrong with a dataset, which requires outliving
// the first bad shard. With more than one worker, shards are ingested
// in parallel and record order across shards is unspecified.
func stream(ctx context.Context, ds *dataset.Dataset, splitName string, limit, workers int, out io.Writer, logger *slog.Logger) error {
	if workers > 1 {
		return streamParallel(ctx, ds, splitName, limit, out, logger)
	}

	iterator, err := ds.Iterate(ctx, splitName)
	if err != nil {
		return err
	}
	defer iterator.Close()

	var produced, failed int
	for {
		if limit > 0 && produced >= limit {
			break
		}

		_, rec, err := iterator.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			logger.Error("shard error", "error", err)
			continue
		}

		if err := renderRecord(out, rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		produced++
	}

	logger.Info("done", "split", splitName, "records", produced, "errors", failed)
	if failed > 0 {
		return fmt.Errorf("%d shard error(s) in split %q", failed, splitName)
	}
	return nil
}

// errLimit signals that --limit records have been written.
var errLimit = errors.New("record limit reached")

// streamParallel ingests shards concurrently via [dataset.Dataset.Run],
// serializing the JSON-line output under a mutex. Shard failures come
// back joined after the run instead of interleaved with records, but
// the exit semantics match the sequential path.
func streamParallel(ctx context.Context, ds *dataset.Dataset, splitName string, limit int, out io.Writer, logger *slog.Logger) error {
	var (
		mu       sync.Mutex
		produced int
	)
	err := ds.Run(ctx, splitName, func(_ string, rec *record.Record) error {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && produced >= limit {
			return errLimit
		}
		if err := renderRecord(out, rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		produced++
		return nil
	})

	var failed int
	switch {
	case err == nil:
	case errors.Is(err, errLimit):
	default:
		for _, shardErr := range unjoin(err) {
			var se *dataset.ShardError
			if !errors.As(shardErr, &se) {
				return shardErr
			}
			failed++
			logger.Error("shard error", "error", se)
		}
	}

	logger.Info("done", "split", splitName, "records", produced, "errors", failed)
	if failed > 0 {
		return fmt.Errorf("%d shard error(s) in split %q", failed, splitName)
	}
	return nil
}

// unjoin flattens an errors.Join result; a plain error comes back as
// a single-element slice.
func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// newLogger builds the stderr text logger shardcat logs through.
func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}
