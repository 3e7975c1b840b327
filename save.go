package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/params"
	"github.com/stewi1014/juliawall/programs"
	"github.com/stewi1014/juliawall/render"
)

type SaveOptions struct {
	Name          string
	Width, Height int
	// Antialias is the supersampling spread in pixels. Zero disables it.
	Antialias float32
}

func DefaultSaveOptions(name string) SaveOptions {
	return SaveOptions{
		Name:      name,
		Width:     1920,
		Height:    1080,
		Antialias: 0.5,
	}
}

// save renders snapshot on the CPU into opts.Name as a PNG. One dialog shows
// progress, then a preview offering to keep or delete the file. Closing the
// dialog early abandons the export.
func save(
	ctx context.Context,
	window *gtk.ApplicationWindow,
	opts SaveOptions,
	snapshot params.Parameters,
) {
	ctx, cancel := context.WithCancelCause(ctx)
	watchErrors(window, ctx)
	defer recoverInto(cancel)

	uniforms := render.UniformsFor(snapshot, opts.Width, opts.Height)
	fractal, err := programs.Julia.GetImage(uniforms, opts.Width, opts.Height)
	if err != nil {
		cancel(err)
		return
	}
	if opts.Antialias > 0 {
		fractal = programs.Supersample(fractal, opts.Antialias)
	}
	export := programs.NewExport(fractal)

	dialog, err := newExportDialog(window, opts)
	if err != nil {
		cancel(err)
		return
	}
	dialog.Connect("response", func(_ *gtk.Dialog, response gtk.ResponseType) {
		if response == gtk.RESPONSE_REJECT {
			if err := os.Remove(opts.Name); err != nil {
				cancel(err)
			}
		}
		dialog.Destroy()
	})
	dialog.Connect("destroy", func() {
		dialog.closed = true
		cancel(nil)
	})
	dialog.ShowAll()
	go dialog.track(ctx, export)

	log := logging.Logger().With("file", opts.Name)
	log.Info("exporting image", "width", opts.Width, "height", opts.Height)

	go func() {
		defer recoverInto(cancel)

		start := time.Now()
		err := writePNG(ctx, opts.Name, export)
		switch {
		case ctx.Err() != nil:
			if err == nil {
				os.Remove(opts.Name)
			}
			log.Info("export abandoned")
		case err != nil:
			cancel(fmt.Errorf("export %s: %w", opts.Name, err))
		default:
			log.Info("image exported", "took", time.Since(start))
			glib.IdleAdd(func() {
				if err := dialog.finished(opts.Name); err != nil {
					cancel(err)
				}
			})
		}
	}()
}

// writePNG renders export and only then creates name, so an abandoned export
// leaves no partial file.
func writePNG(ctx context.Context, name string, export *programs.Export) error {
	img, err := export.Render(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// exportDialog is only touched from the GTK main loop.
type exportDialog struct {
	*gtk.Dialog
	content  *gtk.Box
	status   *gtk.Label
	progress *gtk.ProgressBar
	cancel   *gtk.Button

	closed bool
	done   bool
}

func newExportDialog(parent gtk.IWindow, opts SaveOptions) (*exportDialog, error) {
	d := &exportDialog{}
	var err error

	d.Dialog, err = gtk.DialogNew()
	if err != nil {
		return nil, fmt.Errorf("gtk.DialogNew: %w", err)
	}
	d.SetTitle("Export " + filepath.Base(opts.Name))
	d.SetTransientFor(parent)
	d.SetDestroyWithParent(true)
	d.cancel, err = d.AddButton("Cancel", gtk.RESPONSE_CANCEL)
	if err != nil {
		return nil, fmt.Errorf("dialog.AddButton: %w", err)
	}

	d.content, err = d.GetContentArea()
	if err != nil {
		return nil, fmt.Errorf("dialog.GetContentArea: %w", err)
	}
	d.status, err = gtk.LabelNew(fmt.Sprintf("Rendering %d×%d", opts.Width, opts.Height))
	if err != nil {
		return nil, fmt.Errorf("gtk.LabelNew: %w", err)
	}
	d.progress, err = gtk.ProgressBarNew()
	if err != nil {
		return nil, fmt.Errorf("gtk.ProgressBarNew: %w", err)
	}
	d.progress.SetShowText(true)
	d.progress.SetSizeRequest(400, -1)

	d.content.SetSpacing(8)
	d.content.PackStart(d.status, false, false, 0)
	d.content.PackStart(d.progress, false, false, 0)
	return d, nil
}

// track shows export's progress until ctx ends, then closes the dialog if it
// is still open.
func (d *exportDialog) track(ctx context.Context, export *programs.Export) {
	ticker := time.NewTicker(time.Second / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fraction := export.Progress()
			glib.IdleAdd(func() {
				if !d.closed && !d.done {
					d.progress.SetFraction(fraction)
				}
			})
		case <-ctx.Done():
			glib.IdleAdd(func() {
				if !d.closed {
					d.Destroy()
				}
			})
			return
		}
	}
}

// finished swaps the progress bar for a preview of name and the cancel
// button for keep and delete.
func (d *exportDialog) finished(name string) error {
	if d.closed {
		return nil
	}
	d.done = true

	pixbuf, err := gdk.PixbufNewFromFileAtScale(name, 800, 600, true)
	if err != nil {
		return fmt.Errorf("preview %s: %w", name, err)
	}
	preview, err := gtk.ImageNewFromPixbuf(pixbuf)
	if err != nil {
		return fmt.Errorf("gtk.ImageNewFromPixbuf: %w", err)
	}

	d.progress.Destroy()
	d.status.SetText(fmt.Sprintf("Saved to %s", name))
	d.content.PackStart(preview, true, true, 0)

	if _, err := d.AddButton("Delete", gtk.RESPONSE_REJECT); err != nil {
		return fmt.Errorf("dialog.AddButton: %w", err)
	}
	if _, err := d.AddButton("Keep", gtk.RESPONSE_ACCEPT); err != nil {
		return fmt.Errorf("dialog.AddButton: %w", err)
	}
	d.ShowAll()
	d.cancel.Hide()
	return nil
}
