// flashkv is a small command-line front end over the flashkv embedded
// store, useful for inspecting or scripting against a log file without
// writing Go.
//
// Usage:
//
//	flashkv [flags] <op> <collection> [args...]
//
// Ops:
//
//	map-set <collection> <key> <value>
//	map-get <collection> <key>
//	map-remove <collection> <key>
//	set-add <collection> <key>
//	set-contains <collection> <key>
//	set-remove <collection> <key>
//	compact <collection>
//	clear <collection>
//
// Flags:
//
//	-data string      Data directory (default "data")
//	-loglevel string  Log level: debug, info, warn, error (default "info")
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flashdb/flashkv"
	"github.com/flashdb/flashkv/internal/config"
	"github.com/flashdb/flashkv/internal/version"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "flashkv:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", envOrDefault("FLASHKV_CONFIG", ""), "Path to a JSON config file (overridden by -data/-loglevel)")
	dataDir := flag.String("data", "", "Data directory (default \"data\", or the config file's data_dir)")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (default \"info\", or the config file's log_level)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flashkv v%s (built %s)\n", version.Version, version.BuildTime)
		return nil
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if v := envOrDefault("FLASHKV_DATA", ""); v != "" {
		cfg.DataDir = v
	}
	if v := envOrDefault("FLASHKV_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		return fmt.Errorf("missing op/collection; see -h")
	}
	op, collection, rest := args[0], args[1], args[2:]

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	logPath := filepath.Join(cfg.DataDir, "flashkv.log")

	db, err := flashkv.OpenWithLogger(logPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn("received signal, shutting down", zap.Stringer("signal", sig))
			_ = db.Close()
			os.Exit(130)
		case <-done:
		}
	}()
	defer close(done)
	defer db.Close()

	return dispatch(db, op, collection, rest)
}

func dispatch(db *flashkv.Database, op, collection string, args []string) error {
	switch op {
	case "map-set":
		if len(args) != 2 {
			return fmt.Errorf("map-set requires <key> <value>")
		}
		m, err := flashkv.HashMap[string, string](db, collection, flashkv.StringCodec(), flashkv.StringCodec())
		if err != nil {
			return err
		}
		handle := m.Insert(args[0], args[1])
		prev, err := handle.Await(context.Background())
		if err != nil {
			return err
		}
		if prev.Valid {
			fmt.Printf("replaced %q\n", prev.Value)
		} else {
			fmt.Println("inserted")
		}
		return nil

	case "map-get":
		if len(args) != 1 {
			return fmt.Errorf("map-get requires <key>")
		}
		m, err := flashkv.HashMap[string, string](db, collection, flashkv.StringCodec(), flashkv.StringCodec())
		if err != nil {
			return err
		}
		v, ok := m.Get(args[0])
		if !ok {
			fmt.Println("(none)")
			return nil
		}
		fmt.Println(v.Value())
		return nil

	case "map-remove":
		if len(args) != 1 {
			return fmt.Errorf("map-remove requires <key>")
		}
		m, err := flashkv.HashMap[string, string](db, collection, flashkv.StringCodec(), flashkv.StringCodec())
		if err != nil {
			return err
		}
		handle, ok := m.Remove(args[0])
		if !ok {
			fmt.Println("(none)")
			return nil
		}
		removed, err := handle.Await(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("removed %q\n", removed.Value)
		return nil

	case "set-add":
		if len(args) != 1 {
			return fmt.Errorf("set-add requires <key>")
		}
		s, err := flashkv.HashSet[string](db, collection, flashkv.StringCodec())
		if err != nil {
			return err
		}
		handle := s.Insert(args[0])
		inserted, err := handle.Await(context.Background())
		if err != nil {
			return err
		}
		fmt.Println("inserted:", inserted)
		return nil

	case "set-contains":
		if len(args) != 1 {
			return fmt.Errorf("set-contains requires <key>")
		}
		s, err := flashkv.HashSet[string](db, collection, flashkv.StringCodec())
		if err != nil {
			return err
		}
		fmt.Println(s.Contains(args[0]))
		return nil

	case "set-remove":
		if len(args) != 1 {
			return fmt.Errorf("set-remove requires <key>")
		}
		s, err := flashkv.HashSet[string](db, collection, flashkv.StringCodec())
		if err != nil {
			return err
		}
		handle, ok := s.Remove(args[0])
		if !ok {
			fmt.Println("removed:", false)
			return nil
		}
		if _, err := handle.Await(context.Background()); err != nil {
			return err
		}
		fmt.Println("removed:", true)
		return nil

	case "compact":
		m, err := flashkv.HashMap[string, string](db, collection, flashkv.StringCodec(), flashkv.StringCodec())
		if err != nil {
			return err
		}
		return m.Compact()

	case "clear":
		m, err := flashkv.HashMap[string, string](db, collection, flashkv.StringCodec(), flashkv.StringCodec())
		if err != nil {
			return err
		}
		return m.Clear()

	default:
		return fmt.Errorf("unknown op %q", op)
	}
}
