// Command import runs one bulk import from a CSV file and exits non-zero on failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ryabkov82/bulk-import/internal/client"
	"github.com/ryabkov82/bulk-import/internal/config"
	"github.com/ryabkov82/bulk-import/internal/importer"
	"github.com/ryabkov82/bulk-import/internal/ingest"
	"github.com/ryabkov82/bulk-import/internal/logger"
	"github.com/ryabkov82/bulk-import/internal/version"
)

type flags struct {
	input      string
	baseDir    string
	endpoint   string
	table      string
	modal      string
	encoding   string
	delimiter  string
	headerCase string
	opts       ingest.Options
	showVer    bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.input, "input", "", "CSV file to import (required)")
	fs.StringVar(&f.baseDir, "base-dir", "", "directory the input must live in (default: the input's directory)")
	fs.StringVar(&f.endpoint, "endpoint", "", "submission endpoint URL (required)")
	fs.StringVar(&f.table, "table", "", "table to refresh after a successful import (required)")
	fs.StringVar(&f.modal, "modal", "import", "progress dialog name")
	fs.StringVar(&f.encoding, "encoding", ingest.EncodingUTF8, "CSV encoding: utf-8 or windows-1251")
	fs.StringVar(&f.delimiter, "delimiter", ",", "CSV delimiter: , or ;")
	fs.StringVar(&f.headerCase, "header-case", "", "record key style: as-is, camel or snake")
	fs.IntVar(&f.opts.BatchSize, "batch-size", 0, "records per batch (0: configured default)")
	fs.IntVar(&f.opts.SendTimeoutMs, "send-timeout", 0, "per-attempt timeout in ms (0: configured default)")
	fs.IntVar(&f.opts.MaxRetries, "max-retries", 0, "retries after the first attempt (0: configured default)")
	fs.IntVar(&f.opts.DelayTimeMs, "delay", 0, "delay between attempts in ms (0: configured default)")
	fs.IntVar(&f.opts.MaxConcurrentRequests, "concurrency", 0, "batches in flight (0: configured default)")
	fs.BoolVar(&f.showVer, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.showVer {
		return f, nil
	}
	if f.input == "" {
		return nil, fmt.Errorf("-input is required")
	}
	if f.baseDir == "" {
		f.baseDir = filepath.Dir(f.input)
	}
	return f, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if f.showVer {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger.Init(logger.Options{
		Level:        cfg.Log.Level,
		Format:       "console",
		Service:      version.Name,
		Writer:       stderr,
		WithCaller:   cfg.Log.Caller,
		StaticFields: map[string]string{"version": version.Version},
	})
	log := logger.Named("import")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := ingest.ReadCSV(ctx, f.input, f.baseDir, ingest.CSVOptions{Encoding: f.encoding, Delimiter: f.delimiter, HeaderCase: f.headerCase})
	if err != nil {
		log.Error().Err(err).Str("input", f.input).Msg("read input")
		return 1
	}

	im := importer.New(importer.Options{
		Defaults:  cfg.Import.Defaults(),
		Gzip:      cfg.Delivery.Gzip,
		BasicUser: cfg.Delivery.BasicUser,
		BasicPass: cfg.Delivery.BasicPass,
		Logger:    log,
	})

	sink := newConsoleSink(stdout)
	c := sink.collaborators()
	if hook := client.NewRefreshHook(cfg.Delivery.RefreshURL, cfg.Delivery.RefreshTimeout); hook.Enabled() {
		c.Refresher = hook
	}

	rep := im.Import(ctx, importer.Request{
		Records:  records,
		Endpoint: f.endpoint,
		Modal:    f.modal,
		Table:    f.table,
		Options:  f.opts,
	}, c)

	fmt.Fprintf(stdout, "%s: %d records, %d/%d batches accepted, %d attempts\n",
		rep.Status, rep.TotalRecords, rep.Succeeded, rep.Batches, rep.Timings.Attempts)
	if !rep.OK() {
		return 1
	}
	return 0
}
