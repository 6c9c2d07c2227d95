// Command sizes manages the local clothing size store: it serves the HTTP
// API and runs export, import, share and backup tasks from the shell.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sizes/internal/adapters/httpapi"
	"sizes/internal/backup"
	"sizes/internal/blob"
	"sizes/internal/config"
	"sizes/internal/core"
	"sizes/internal/prefs"
	"sizes/pkg/share"
)

var exitFunc = os.Exit

const usage = `usage: sizes [-trace] <command> [args]

commands:
  serve               run the HTTP API
  export [-o file]    write a backup document (stdout by default)
  import <file>       replace all data with a backup document
  share <profileID>   print a share link for a profile
  decode <token|url>  print the profile carried by a share token
  backup [-keep n]    archive the current data, optionally pruning older archives
  backups             list archived backups
  restore <key>       replace all data with an archived backup
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sizes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	trace := fs.Bool("trace", false, "write one JSON line per store operation to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	command, cmdArgs := rest[0], rest[1:]

	if command == "decode" {
		return report(stderr, decodeCommand(cmdArgs, stdout))
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	a, err := openApp(cfg, logger, *trace, stderr)
	if err != nil {
		logger.Error("open store", "error", err)
		return 1
	}
	defer func() {
		if cerr := a.closeStore(); cerr != nil {
			logger.Warn("close store", "error", cerr)
		}
	}()

	switch command {
	case "serve":
		err = a.serve(ctx, cmdArgs)
	case "export":
		err = a.export(ctx, cmdArgs, stdout)
	case "import":
		err = a.importFile(ctx, cmdArgs, stdout)
	case "share":
		err = a.share(ctx, cmdArgs, stdout)
	case "backup":
		err = a.backup(ctx, cmdArgs, stdout)
	case "backups":
		err = a.listBackups(ctx, stdout)
	case "restore":
		err = a.restore(ctx, cmdArgs, stdout)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return 2
	}
	return report(stderr, err)
}

func report(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var usageErr usageError
	if errors.As(err, &usageErr) {
		_, _ = fmt.Fprintln(stderr, usageErr.Error())
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "sizes: %v\n", err)
	return 1
}

type usageError string

func (e usageError) Error() string { return "usage: sizes " + string(e) }

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	backend    core.Backend
	svc        *core.Service
	registry   *prometheus.Registry
	closeStore func() error
}

func openApp(cfg *config.Config, logger *slog.Logger, trace bool, traceOut io.Writer) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return nil, err
	}
	opts := []core.Option{core.WithLogger(logger), core.WithMetricsRecorder(recorder)}
	if trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceOut)))
	}

	backend, closeFn, err := core.OpenPersistentStore(cfg.Storage, core.NewRulesEngine())
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.SQLitePath)
	return &app{
		cfg:        cfg,
		logger:     logger,
		backend:    backend,
		svc:        core.NewService(backend, opts...),
		registry:   registry,
		closeStore: closeFn,
	}, nil
}

func (a *app) archive(ctx context.Context) (*backup.Archive, error) {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return backup.NewArchive(store, a.svc.Now), nil
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.HTTP.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return usageError("serve [-addr host:port]")
	}

	manager := prefs.New(a.backend, prefs.Defaults(os.Getenv("LANG")))
	if err := manager.Init(ctx); err != nil {
		return err
	}
	manager.Subscribe(func(p prefs.Preferences) {
		a.logger.Info("preferences updated", "language", p.Language, "theme", p.Theme)
	})
	archive, err := a.archive(ctx)
	if err != nil {
		return err
	}
	for _, p := range a.svc.ProfilesNeedingReview() {
		a.logger.Info("sizes due for review", "profile", p.Name, "lastCheck", p.LastCheck)
	}

	handler := httpapi.NewHandler(a.svc)
	handler.Prefs = manager
	handler.Archive = archive
	handler.Gatherer = a.registry
	handler.Logger = a.logger
	handler.PublicBaseURL = a.cfg.HTTP.PublicBaseURL
	handler.MaxUploadBytes = a.cfg.HTTP.MaxUploadBytes

	srv := &http.Server{
		Addr:         *addr,
		Handler:      httpapi.WithCORS(handler.Router(), a.cfg.HTTP.AllowedOrigins),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (a *app) export(ctx context.Context, args []string, stdout io.Writer) (err error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return usageError("export [-o file]")
	}
	doc, err := a.svc.Export(ctx)
	if err != nil {
		return err
	}
	if *out == "" {
		return backup.WriteDocument(stdout, doc)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", *out, cerr)
		}
	}()
	if err := backup.WriteDocument(f, doc); err != nil {
		return err
	}
	counts := doc.Counts()
	_, err = fmt.Fprintf(stdout, "exported %d profiles, %d brands, %d sizes to %s\n", counts.Profiles, counts.Brands, counts.Sizes, *out)
	return err
}

func (a *app) importFile(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("import <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()
	doc, err := backup.ParseDocument(f)
	if err != nil {
		return err
	}
	counts, err := a.svc.Import(ctx, doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "imported %d profiles, %d brands, %d sizes\n", counts.Profiles, counts.Brands, counts.Sizes)
	return err
}

func (a *app) share(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("share <profileID>")
	}
	token, err := a.svc.ShareToken(ctx, args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, share.Link(a.cfg.HTTP.PublicBaseURL, token))
	return err
}

func decodeCommand(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("decode <token|url>")
	}
	token := args[0]
	if i := strings.LastIndex(token, "/share/"); i >= 0 {
		token = token[i+len("/share/"):]
	}
	payload, err := share.Decode(token)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(payload)
}

func (a *app) backup(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	keep := fs.Int("keep", 0, "archives to keep, 0 keeps all")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *keep < 0 {
		return usageError("backup [-keep n]")
	}
	archive, err := a.archive(ctx)
	if err != nil {
		return err
	}
	doc, err := a.svc.Export(ctx)
	if err != nil {
		return err
	}
	entry, err := archive.Save(ctx, doc)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(stdout, entry.Key); err != nil {
		return err
	}
	if *keep == 0 {
		return nil
	}
	removed, err := archive.Prune(ctx, *keep)
	for _, key := range removed {
		a.logger.Info("pruned backup", "key", key)
	}
	return err
}

func (a *app) listBackups(ctx context.Context, stdout io.Writer) error {
	archive, err := a.archive(ctx)
	if err != nil {
		return err
	}
	entries, err := archive.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tSAVED\tPROFILES\tBRANDS\tSIZES")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", e.Key, e.SavedAt.Format("2006-01-02 15:04"), e.Counts.Profiles, e.Counts.Brands, e.Counts.Sizes)
	}
	return tw.Flush()
}

func (a *app) restore(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("restore <key>")
	}
	archive, err := a.archive(ctx)
	if err != nil {
		return err
	}
	doc, err := archive.Load(ctx, args[0])
	if err != nil {
		return err
	}
	counts, err := a.svc.Import(ctx, doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "restored %d profiles, %d brands, %d sizes\n", counts.Profiles, counts.Brands, counts.Sizes)
	return err
}
