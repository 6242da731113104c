// vparcel inspects encoded versioned objects.
//
//	vparcel dump [--config FILE] [--max-bytes N] [--max-depth N] FILE...
//	vparcel store buckets DB
//	vparcel store keys DB BUCKET
//	vparcel store dump DB BUCKET KEY
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/andreyvit/vparcel"
	"github.com/andreyvit/vparcel/mmap"
)

const usage = `Usage:
  vparcel dump [--config FILE] [--max-bytes N] [--max-depth N] FILE...
  vparcel store buckets DB
  vparcel store keys DB BUCKET
  vparcel store dump DB BUCKET KEY
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flagSet := pflag.NewFlagSet("vparcel", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	configPath := flagSet.String("config", "", "TOML config file")
	maxBytes := flagSet.Int("max-bytes", 0, "length of hex previews (overrides dump.max_bytes)")
	maxDepth := flagSet.Int("max-depth", 0, "nesting limit (overrides dump.max_depth)")
	verbose := flagSet.BoolP("verbose", "v", false, "log debug messages to stderr")
	flagSet.SetInterspersed(true)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(stderr, usage)
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath, cfg)
		if err != nil {
			return err
		}
	}
	if flagSet.Changed("max-bytes") {
		cfg.Dump.MaxBytes = *maxBytes
	}
	if flagSet.Changed("max-depth") {
		cfg.Dump.MaxDepth = *maxDepth
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return errUsage
	}
	switch cmd, rest := rest[0], rest[1:]; cmd {
	case "dump":
		return runDump(rest, cfg, stdout)
	case "store":
		return runStore(rest, cfg, logger, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runDump(paths []string, cfg config, stdout io.Writer) error {
	if len(paths) == 0 {
		return errUsage
	}
	for _, path := range paths {
		f, err := mmap.Open(path, mmap.SequentialAccess)
		if err != nil {
			return err
		}
		if len(paths) > 1 {
			fmt.Fprintf(stdout, "%s:\n", path)
		}
		fmt.Fprint(stdout, vparcel.Dump(f.Bytes(), cfg.Dump))
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func runStore(args []string, cfg config, logger *slog.Logger, stdout io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	sub, dbPath, args := args[0], args[1], args[2:]

	wantArgs := map[string]int{"buckets": 0, "keys": 1, "dump": 2}
	n, ok := wantArgs[sub]
	if !ok {
		return fmt.Errorf("%w: unknown store command %q", errUsage, sub)
	}
	if len(args) != n {
		return errUsage
	}

	store, err := vparcel.OpenStore(dbPath, vparcel.StoreOptions{
		Options:  vparcel.Options{Logger: logger},
		ReadOnly: true,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	switch sub {
	case "buckets":
		names, err := store.Buckets()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
	case "keys":
		keys, err := store.Keys(args[0])
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintln(stdout, key)
		}
	case "dump":
		data, err := store.Raw(args[0], args[1])
		if err != nil {
			return fmt.Errorf("%s/%s: %w", args[0], args[1], err)
		}
		fmt.Fprint(stdout, vparcel.Dump(data, cfg.Dump))
	}
	return nil
}
