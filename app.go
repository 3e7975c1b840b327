package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/settings"
)

func NewApplication(ctx context.Context, opts options, store *settings.Store) (*Application, error) {
	gtk.Init(&os.Args)

	app, err := gtk.ApplicationNew("com.github.stewi1014.juliawall", glib.APPLICATION_FLAGS_NONE)
	if err != nil {
		return nil, fmt.Errorf("gtk.ApplicationNew failed: %w", err)
	}

	a := &Application{
		Application: app,
		opts:        opts,
		store:       store,
	}
	a.ctx, a.quit = context.WithCancelCause(ctx)
	app.Connect("activate", a.onActivate)

	return a, nil
}

type Application struct {
	*gtk.Application
	opts  options
	store *settings.Store

	ctx  context.Context
	quit context.CancelCauseFunc
}

func (a *Application) onActivate(app *gtk.Application) {
	defer recoverInto(a.quit)

	// The config window talks to the store the same way remote clients do.
	client, listener := settings.NewPipeListener()
	go func() {
		if err := settings.Serve(a.ctx, listener, a.store); err != nil {
			a.quit(err)
		}
	}()

	renderWindow, err := NewRenderWindow(a.ctx, app, a.store, a.opts.debug)
	if err != nil {
		a.quit(err)
		return
	}
	renderWindow.Connect("destroy", func() {
		a.quit(nil)
	})
	renderWindow.SetTitle("Julia")
	watchErrors(renderWindow.ApplicationWindow, a.ctx)

	configWindow, err := NewConfigWindow(a.ctx, app, a.store, settings.NewClient(client), renderWindow, a.quit)
	if err != nil {
		a.quit(err)
		return
	}
	configWindow.Connect("destroy", func() {
		client.Close()
	})
	configWindow.SetTitle("Julia Settings")

	logging.Logger().Info("application started", "settings", a.opts.settingsPath)
}

// Run blocks until the application quits.
func (a *Application) Run() error {
	go func() {
		<-a.ctx.Done()
		glib.IdleAdd(func() {
			a.Quit()
		})
	}()

	a.Application.Run(nil)
	a.quit(nil)
	return context.Cause(a.ctx)
}
