// Command badgectl edits and exports badge documents from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/badgemaker/badgemaker/internal/clipboard"
	"github.com/badgemaker/badgemaker/internal/config"
	"github.com/badgemaker/badgemaker/internal/db"
	"github.com/badgemaker/badgemaker/internal/engine"
	"github.com/badgemaker/badgemaker/internal/fonts"
	"github.com/badgemaker/badgemaker/internal/imagecache"
	"github.com/badgemaker/badgemaker/internal/persist"
	"github.com/badgemaker/badgemaker/internal/shape"
	"github.com/badgemaker/badgemaker/internal/store"
)

const usage = `usage: badgectl [-config file] <command> [args]

commands:
  sample                     replace the document with the sample badge
  list                       print the shapes in paint order
  add <type> [key=value...]  add a shape
  set <id> key=value...      update shape properties
  remove <id>                remove a shape
  clear                      remove every shape
  front <id> | back <id>     change paint order
  move <id> <up|down|left|right> [fine]
  align <mode> <id...>       align shapes (` + "center-horizontal, center-vertical, justify-left, justify-right, justify-top, justify-bottom" + `)
  copy <id...>               copy shapes to the clipboard
  paste                      paste shapes from the clipboard
  import <file>              replace the document with a JSON file
  export [file]              write the document as JSON
  render <file.png|file.pdf> draw the document
  history                    list recent history entries
  documents                  list documents (postgres backend)
`

// app holds everything a command needs.
type app struct {
	cfg    *config.Config
	store  *store.Store
	shaper *engine.Shaper
	fonts  *fonts.Library
	images *imagecache.Cache
	clip   clipboard.Board
	pool   *pgxpool.Pool
	queue  *persist.Queue
}

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvFile), "config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gg.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := open(ctx, cfg)
	if err != nil {
		slog.Error("open document", "error", err, "backend", cfg.Backend)
		os.Exit(1)
	}
	runErr := a.run(ctx, flag.Arg(0), flag.Args()[1:])
	if err := a.close(); err != nil {
		slog.Error("close document", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		if errors.Is(runErr, errUsage) {
			fmt.Fprintln(os.Stderr, runErr)
			flag.Usage()
			os.Exit(2)
		}
		slog.Error(flag.Arg(0), "error", runErr)
		os.Exit(1)
	}
}

func open(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var adapter persist.Adapter
	switch cfg.Backend {
	case config.BackendFile:
		adapter = persist.NewFile(cfg.DataFile)
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		adapter = db.NewShapeStore(pool, cfg.DocumentID)
	default:
		adapter = persist.NewMemory()
	}

	a.queue = persist.NewQueue(adapter, cfg.PersistTimeout)
	go a.queue.Run(context.Background())

	if cfg.SystemClipboard {
		a.clip = clipboard.Detect()
	} else {
		a.clip = &clipboard.Memory{}
	}

	a.fonts = fonts.NewLibrary(cfg.FontDir)
	a.images = imagecache.New(cfg.ImageDir)
	a.shaper = engine.NewShaper(shape.NewRegistry(a.fonts, a.images, cfg.Layout.Layout))
	a.store = store.New(store.Options{
		Persister:   a.queue,
		Loader:      adapter,
		Aligner:     a.shaper,
		Images:      a.images,
		Clipboard:   a.clip,
		NotifyDelay: cfg.NotifyDelay,
		CopyNudge:   cfg.Layout.CopyNudge,
		MoveStep:    cfg.Layout.MoveStep,
		FineStep:    cfg.Layout.FineStep,
	})
	a.images.OnLoad(func(src string, state imagecache.State) {
		slog.Debug("image loaded", "src", src, "state", state)
		a.store.Touch()
	})

	if err := a.store.Open(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// close flushes pending writes and releases every resource.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close(ctx))
	}
	if a.images != nil {
		a.images.Wait()
	}
	if a.fonts != nil {
		errs = append(errs, a.fonts.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
