package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/settings"
)

type options struct {
	settingsPath string
	listen       string
	debug        bool
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "juliawall.gob"
	}
	return filepath.Join(dir, "juliawall", "settings.gob")
}

func main() {
	var opts options
	flag.StringVar(&opts.settingsPath, "settings", defaultSettingsPath(), "settings file")
	flag.StringVar(&opts.listen, "listen", "", "serve remote settings over websocket on this address")
	flag.BoolVar(&opts.debug, "debug", false, "debug logging and OpenGL debug output")
	flag.Parse()

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logging.SetLogger(logger)

	if err := os.MkdirAll(filepath.Dir(opts.settingsPath), 0o755); err != nil {
		logger.Error("settings directory", "err", err)
		os.Exit(1)
	}
	store, err := settings.Open(opts.settingsPath)
	if err != nil {
		logger.Error("open settings", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("settings not saved", "err", err)
		}
	}()

	mainContext, mainQuit := context.WithCancelCause(context.Background())

	if opts.listen != "" {
		go func() {
			mainQuit(serveWebsocket(mainContext, opts.listen, store))
		}()
	}

	go func() {
		mainQuit(gtkMain(mainContext, opts, store))
	}()

	<-mainContext.Done()
	if err := context.Cause(mainContext); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exiting", "err", err)
		store.Close()
		os.Exit(1)
	}
}

// serveWebsocket applies settings updates sent by remote clients.
func serveWebsocket(ctx context.Context, addr string, store *settings.Store) error {
	listener := settings.NewWSListener(ctx, addr)
	server := &http.Server{
		Addr:    addr,
		Handler: listener.Handler(nil),
	}
	context.AfterFunc(ctx, func() {
		server.Close()
	})

	go func() {
		if err := settings.Serve(ctx, listener, store); err != nil {
			slog.Warn("remote settings stopped", "err", err)
		}
	}()

	slog.Info("serving remote settings", "addr", addr)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func gtkMain(ctx context.Context, opts options, store *settings.Store) error {
	runtime.LockOSThread()

	app, err := NewApplication(ctx, opts, store)
	if err != nil {
		return err
	}
	return app.Run()
}
