package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/tiledb-go"
)

func main() {
	var (
		uri         = flag.String("uri", "", "Array or group URI to inspect")
		configFile  = flag.String("config", "", "Config file to load")
		params      = flag.String("set", "", "Config parameters (key=val,key2=val2)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log engine activity to stderr")
		stats       = flag.Bool("stats", false, "Print engine statistics after inspecting")
	)
	flag.Parse()

	if *uri == "" {
		fmt.Fprintln(os.Stderr, "Usage: tiledb-inspect -uri <uri> [-config file] [-set k=v,...] [-stats]")
		fmt.Fprintln(os.Stderr, "       tiledb-inspect -uri <uri> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			tiledb.SetLogger(l)
			defer l.Sync()
		}
	}

	ctx, err := newContext(*configFile, *params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Free()

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(ctx, *uri); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, *uri, *stats); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newContext(configFile, params string) (*tiledb.Context, error) {
	var (
		cfg *tiledb.Config
		err error
	)
	if configFile != "" {
		cfg, err = tiledb.LoadConfig(configFile)
	} else {
		cfg, err = tiledb.NewConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer cfg.Free()

	if params != "" {
		for _, kv := range strings.Split(params, ",") {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("config parameter %q: want key=value", kv)
			}
			if err := cfg.Set(parts[0], parts[1]); err != nil {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}
	return tiledb.NewContext(cfg)
}

func run(ctx *tiledb.Context, uri string, withStats bool) error {
	if withStats {
		if err := tiledb.StatsEnable(); err != nil {
			return err
		}
		defer tiledb.StatsDisable()
	}

	objects, err := listObjects(ctx, uri)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		fmt.Printf("%s %s\n\n", obj.Type, obj.URI)
		for _, pane := range panesFor(obj.Type) {
			text, err := describe(ctx, obj, pane)
			if err != nil {
				return fmt.Errorf("%s of %s: %w", pane, obj.URI, err)
			}
			fmt.Printf("## %s\n%s\n\n", pane, strings.TrimRight(text, "\n"))
		}
	}

	if withStats {
		s, err := tiledb.StatsDump()
		if err != nil {
			return err
		}
		fmt.Println(s)
	}
	return nil
}
