// Command mdforge is the CLI entry point: render/watch/serve/repl
// subcommands plus a bare-stdin eval mode, grounded on cmd/pars/main.go
// (flag style, long/short pairs, -V/-version) and cmd/basil/main.go's
// testable run(ctx, args, stdout, stderr, getenv) pattern.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sambeau/mdforge/pkg/mdcache"
	"github.com/sambeau/mdforge/pkg/mdconfig"
	"github.com/sambeau/mdforge/pkg/mderr"
	"github.com/sambeau/mdforge/pkg/mdforge"
	"github.com/sambeau/mdforge/pkg/mdlog"
	"github.com/sambeau/mdforge/pkg/mdrepl"
	"github.com/sambeau/mdforge/pkg/mdserve"
	"github.com/sambeau/mdforge/pkg/mdwatch"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0-dev"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the testable entry point (Mat Ryer pattern).
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) > 0 {
		switch args[0] {
		case "render":
			return runRender(args[1:], stdout, stderr, getenv)
		case "watch":
			return runWatch(ctx, args[1:], stdout, stderr, getenv)
		case "serve":
			return runServe(ctx, args[1:], stdout, stderr, getenv)
		case "repl":
			mdrepl.Start(os.Stdin, stdout, Version)
			return nil
		}
	}
	return runEval(args, stdout, stderr)
}

// runEval implements the bare `mdforge -e/-eval` stdin mode.
func runEval(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("mdforge", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		evalFlag    = flags.Bool("e", false, "Render markdown piped on stdin")
		evalLong    = flags.Bool("eval", false, "Render markdown piped on stdin")
		versionFlag = flags.Bool("V", false, "Show version")
		versionLong = flags.Bool("version", false, "Show version")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		return err
	}

	if *versionFlag || *versionLong {
		fmt.Fprintf(stdout, "mdforge version %s\n", Version)
		return nil
	}

	if !*evalFlag && !*evalLong {
		printUsage(stdout)
		return nil
	}

	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return renderAndWrite(string(source), stdout)
}

// runRender implements `mdforge render FILE...`.
func runRender(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("mdforge render", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		out        = flags.String("o", "", "Write output to a file instead of stdout")
		configPath = flags.String("config", "", "Path to config file")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := mdconfig.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var cache *mdcache.Cache
	if cfg.Cache.Enabled {
		cache, err = mdcache.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer cache.Close()
	}

	files := flags.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}

	var dest io.Writer = stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		dest = f
	}

	for _, file := range files {
		var source []byte
		if file == "-" {
			source, err = io.ReadAll(os.Stdin)
		} else {
			source, err = os.ReadFile(file)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		html, err := renderCached(string(source), cache)
		if err != nil {
			return describeError(file, err)
		}
		io.WriteString(dest, html)
	}
	return nil
}

// runWatch implements `mdforge watch DIR`.
func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("mdforge watch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	dir := "."
	if flags.NArg() > 0 {
		dir = flags.Arg(0)
	}

	cfg, err := mdconfig.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := mdlog.StdoutLogger(stdout)
	w, err := mdwatch.Watch(dir, time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, func(path string) {
		source, err := os.ReadFile(path)
		if err != nil {
			log.LogLine("[WATCH] read error:", err)
			return
		}
		if _, err := mdforge.Format(string(source)); err != nil {
			log.LogLine("[WATCH]", describeError(path, err))
			return
		}
		log.LogLine("[WATCH] rendered:", path)
	}, log)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	return nil
}

// runServe implements `mdforge serve DIR`.
func runServe(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("mdforge serve", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		configPath = flags.String("config", "", "Path to config file")
		watchFlag  = flags.Bool("watch", false, "Enable live reload")
		port       = flags.Int("port", 0, "Override listen port")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	dir := "."
	if flags.NArg() > 0 {
		dir = flags.Arg(0)
	}

	cfg, err := mdconfig.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	var cache *mdcache.Cache
	if cfg.Cache.Enabled {
		cache, err = mdcache.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer cache.Close()
	}

	log := mdlog.StdoutLogger(stdout)
	srv, err := mdserve.New(mdserve.Options{
		Root:        dir,
		Compression: mdserve.Compression(cfg.Server.Compression),
		Cache:       cache,
		Watch:       *watchFlag,
		Log:         log,
	})
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer srv.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.LogLine("[SERVE] listening on", addr)

	httpServer := &http.Server{Addr: addr, Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func renderAndWrite(source string, dest io.Writer) error {
	html, err := mdforge.Format(source)
	if err != nil {
		return describeError("stdin", err)
	}
	io.WriteString(dest, html)
	return nil
}

func renderCached(source string, cache *mdcache.Cache) (string, error) {
	if cache != nil {
		if html, ok, err := cache.Get(source); err == nil && ok {
			return html, nil
		}
	}
	html, err := mdforge.Format(source)
	if err != nil {
		return "", err
	}
	if cache != nil {
		cache.Put(source, html)
	}
	return html, nil
}

func describeError(file string, err error) error {
	if mdErr, ok := err.(*mderr.Error); ok {
		return fmt.Errorf("%s: %s", filepath.Base(file), mdErr.Error())
	}
	return fmt.Errorf("%s: %w", file, err)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "mdforge - a Markdown to HTML engine")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  mdforge render FILE...   render files to stdout (or -o FILE)")
	fmt.Fprintln(out, "  mdforge watch DIR        re-render on change")
	fmt.Fprintln(out, "  mdforge serve DIR        preview server")
	fmt.Fprintln(out, "  mdforge repl             interactive console")
	fmt.Fprintln(out, "  mdforge -e / -eval       render markdown piped on stdin")
}
