package main

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/params"
	"github.com/stewi1014/juliawall/programs"
	"github.com/stewi1014/juliawall/render"
	"github.com/stewi1014/juliawall/settings"
)

// recoverInto turns a panic in the calling goroutine into the cause of
// cancel's context.
func recoverInto(cancel context.CancelCauseFunc) {
	v := recover()
	if v == nil {
		return
	}
	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%v", v)
	}
	cancel(fmt.Errorf("panic: %w\n%s", err, debug.Stack()))
}

// explain gives a headline and a hint for err as shown to the user.
func explain(err error) (headline, hint string) {
	switch {
	case errors.Is(err, params.ErrMalformedConstant):
		return "Invalid constant",
			`Write the constant as a complex number such as "-0.8 +0.156i".`
	case errors.Is(err, render.ErrShader):
		return "The fractal shader failed to build",
			"The graphics driver rejected the shader. Rendering has stopped."
	case errors.Is(err, render.ErrDestroyed), errors.Is(err, render.ErrNotReady):
		return "The renderer is not available",
			"The drawing surface was lost. Reopen the window to continue."
	case errors.Is(err, programs.ErrNoCPUImplementation):
		return "Export not supported",
			"This fractal can only be drawn on the GPU."
	case errors.Is(err, settings.ErrClosed), errors.Is(err, settings.ErrUnsupportedType):
		return "Settings were not saved", ""
	}
	return "Something went wrong", ""
}

// watchErrors shows the cause of ctx ending over parent, unless it was a
// plain cancellation.
func watchErrors(parent gtk.IWindow, ctx context.Context) {
	go func() {
		<-ctx.Done()
		err := context.Cause(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.Logger().Error("operation failed", "err", err)
		glib.IdleAdd(func() {
			showError(parent, err)
		})
	}()
}

// showError opens a non-modal message dialog describing err. The full error
// text is selectable so it can be copied into a bug report.
func showError(parent gtk.IWindow, err error) {
	headline, hint := explain(err)
	dialog := gtk.MessageDialogNew(
		parent,
		gtk.DIALOG_DESTROY_WITH_PARENT,
		gtk.MESSAGE_ERROR,
		gtk.BUTTONS_CLOSE,
		"%s",
		headline,
	)
	if hint != "" {
		dialog.FormatSecondaryText("%s\n\n%s", hint, err.Error())
	} else {
		dialog.FormatSecondaryText("%s", err.Error())
	}
	dialog.Connect("response", dialog.Destroy)

	if area, areaErr := dialog.GetMessageArea(); areaErr == nil {
		area.GetChildren().Foreach(func(item any) {
			if w, ok := item.(*gtk.Widget); ok {
				if l, err := gtk.WidgetToLabel(w); err == nil {
					l.SetSelectable(true)
				}
			}
		})
	}
	dialog.Show()
}
