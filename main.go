package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hdonnay/Pass/internal/config"
	"github.com/hdonnay/Pass/internal/launcher"
)

var (
	cfgPath   = pflag.StringP("config", "c", "", "configuration `file`")
	verbose   = pflag.BoolP("debug", "d", false, "log debugging output")
	noPlumber = pflag.Bool("no-plumber", false, "don't listen on the plumber's \"pass\" port")
	noWatch   = pflag.Bool("no-watch", false, "don't reload windows when the store changes")
	list      = pflag.BoolP("list", "l", false, "print the items for the query and exit")
	action    = pflag.String("do", "", "run `action` on the item named by --id and exit")
	itemID    = pflag.String("id", "", "item `id` for --do; defaults to the query")
)

var logger = zap.NewNop()

func debug(format string, args ...any) {
	logger.Sugar().Debugf(format, args...)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of %s:\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\t%s [options] [query]\n\n", os.Args[0])
	pflag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "Without --list or --do, opens an acme window searching the password store.\n")
	fmt.Fprintf(os.Stderr, "Queries starting with \"generate <pass-name>\" offer to generate a password,\n")
	fmt.Fprintf(os.Stderr, "and with use_otp set, \"otp [filter]\" lists one-time-password entries.\n\n")
}

func init() {
	pflag.Usage = usage
}

func main() {
	pflag.Parse()
	if err := setupLogger(*verbose); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path := *cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			logger.Fatal("no configuration path", zap.Error(err))
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal("loading configuration", zap.Error(err))
	}
	debug("configuration: %+v", cfg)

	h := launcher.New(cfg, launcher.WithLogger(logger))
	query := strings.Join(pflag.Args(), " ")

	switch {
	case *list:
		if err := printItems(ctx, os.Stdout, h, query); err != nil {
			logger.Fatal("listing", zap.Error(err))
		}
		return
	case *action != "":
		if err := doAction(ctx, h, query, *itemID, *action); err != nil {
			logger.Fatal("running action", zap.Error(err))
		}
		return
	}

	ui := &UI{h: h, cfgPath: path}
	ui.start(ctx, "", query)
	if !*noWatch && cfg.Backend == config.Pass {
		go ui.watch(ctx, cfg.StoreDir)
	}
	go ui.plumber()

	select {
	case <-ui.exited:
	case <-ctx.Done():
	}
}

func setupLogger(verbose bool) error {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}
