package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gogpu/gg"
	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/params"
	"github.com/stewi1014/juliawall/picker"
	"github.com/stewi1014/juliawall/settings"
)

const (
	wheelSize   = 240
	sliderWidth = 24
)

// colourTargets are the keys the picker can write, in combo box order.
var colourTargets = []params.Key{params.OutputColour, params.BoundedColour}

func NewConfigWindow(
	ctx context.Context,
	app *gtk.Application,
	store *settings.Store,
	client *settings.Client,
	render *RenderWindow,
	quit func(error),
) (*ConfigWindow, error) {
	var err error
	w := &ConfigWindow{
		ctx:    ctx,
		store:  store,
		client: client,
		render: render,
		quit:   quit,
		picker: picker.New(wheelSize, sliderWidth),
	}

	w.ApplicationWindow, err = gtk.ApplicationWindowNew(app)
	if err != nil {
		return nil, fmt.Errorf("gtk.ApplicationWindowNew: %w", err)
	}
	w.SetDefaultSize(280, 700)

	box, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 6)
	if err != nil {
		return nil, fmt.Errorf("gtk.BoxNew: %w", err)
	}
	box.SetMarginStart(8)
	box.SetMarginEnd(8)
	box.SetMarginTop(8)
	box.SetMarginBottom(8)

	for _, add := range []func(*gtk.Box) error{
		w.addToggles,
		w.addColouring,
		w.addIterations,
		w.addZoom,
		w.addConstant,
		w.addPicker,
		w.addSave,
	} {
		if err := add(box); err != nil {
			return nil, err
		}
	}

	cancel := store.OnChange(func(key string) {
		glib.IdleAdd(func() { w.refresh(key) })
	})
	w.Connect("destroy", cancel)

	w.Add(box)
	w.ShowAll()
	return w, nil
}

type ConfigWindow struct {
	*gtk.ApplicationWindow

	ctx    context.Context
	store  *settings.Store
	client *settings.Client
	render *RenderWindow
	quit   func(error)

	zoom         *gtk.Scale
	constant     *gtk.Entry
	target       *gtk.ComboBoxText
	boundedAlpha *gtk.Scale
	picker       *picker.Picker
	wheelImage   *gtk.Image
	sliderImage  *gtk.Image
	previewLabel *gtk.Label
	refreshing   bool
}

func (w *ConfigWindow) set(key params.Key, value any) {
	if w.refreshing {
		return
	}
	if err := w.client.Set(key.String(), value); err != nil {
		logging.Logger().Warn("settings update failed", "key", key.String(), "err", err)
		showError(w.ApplicationWindow, err)
	}
}

func (w *ConfigWindow) snapshot() params.Parameters {
	return w.render.Engine().Store().Snapshot()
}

func (w *ConfigWindow) addToggles(box *gtk.Box) error {
	p := w.snapshot()
	for _, toggle := range []struct {
		label string
		key   params.Key
		value bool
	}{
		{"Double tap to move", params.MoveMode, p.MoveMode},
		{"Cycle colours", params.ColourCycle, p.ColourCycle},
	} {
		check, err := gtk.CheckButtonNewWithLabel(toggle.label)
		if err != nil {
			return fmt.Errorf("gtk.CheckButtonNewWithLabel: %w", err)
		}
		check.SetActive(toggle.value)
		key := toggle.key
		check.Connect("toggled", func(check *gtk.CheckButton) {
			w.set(key, check.GetActive())
		})
		box.PackStart(check, false, false, 0)
	}
	return nil
}

func (w *ConfigWindow) addColouring(box *gtk.Box) error {
	label, _ := gtk.LabelNew("Colouring")
	label.SetXAlign(0)
	box.PackStart(label, false, false, 0)

	combo, err := gtk.ComboBoxTextNew()
	if err != nil {
		return fmt.Errorf("gtk.ComboBoxTextNew: %w", err)
	}
	combo.AppendText("linear")
	combo.AppendText("log")
	if w.snapshot().LogColouring {
		combo.SetActive(1)
	} else {
		combo.SetActive(0)
	}
	combo.Connect("changed", func(combo *gtk.ComboBoxText) {
		w.set(params.ColouringMethod, combo.GetActiveText())
	})
	box.PackStart(combo, false, false, 0)
	return nil
}

func (w *ConfigWindow) addIterations(box *gtk.Box) error {
	label, _ := gtk.LabelNew("Iterations")
	label.SetXAlign(0)
	box.PackStart(label, false, false, 0)

	spin, err := gtk.SpinButtonNewWithRange(params.MinIterations, params.MaxIterations, 10)
	if err != nil {
		return fmt.Errorf("gtk.SpinButtonNewWithRange: %w", err)
	}
	spin.SetValue(float64(w.snapshot().Iterations))
	spin.Connect("value-changed", func(spin *gtk.SpinButton) {
		w.set(params.Iterations, spin.GetValueAsInt())
	})
	box.PackStart(spin, false, false, 0)
	return nil
}

func (w *ConfigWindow) addZoom(box *gtk.Box) error {
	label, _ := gtk.LabelNew("Zoom")
	label.SetXAlign(0)
	box.PackStart(label, false, false, 0)

	var err error
	w.zoom, err = gtk.ScaleNewWithRange(
		gtk.ORIENTATION_HORIZONTAL,
		float64(params.MinZoom),
		float64(params.MaxZoom),
		float64(params.ZoomStep),
	)
	if err != nil {
		return fmt.Errorf("gtk.ScaleNewWithRange: %w", err)
	}
	w.zoom.SetValue(float64(w.snapshot().Zoom))
	w.zoom.Connect("value-changed", func(scale *gtk.Scale) {
		w.set(params.Zoom, float32(scale.GetValue()))
	})
	box.PackStart(w.zoom, false, false, 0)
	return nil
}

func (w *ConfigWindow) addConstant(box *gtk.Box) error {
	label, _ := gtk.LabelNew("Constant")
	label.SetXAlign(0)
	box.PackStart(label, false, false, 0)

	var err error
	w.constant, err = gtk.EntryNew()
	if err != nil {
		return fmt.Errorf("gtk.EntryNew: %w", err)
	}
	w.constant.SetText(params.FormatConstant(w.snapshot().Constant))
	w.constant.Connect("activate", func(entry *gtk.Entry) {
		text, err := entry.GetText()
		if err != nil {
			return
		}
		if _, err := params.ParseConstant(text); err != nil {
			showError(w.ApplicationWindow, err)
			return
		}
		w.set(params.Constant, text)
	})
	box.PackStart(w.constant, false, false, 0)
	return nil
}

func (w *ConfigWindow) addPicker(box *gtk.Box) error {
	var err error
	w.target, err = gtk.ComboBoxTextNew()
	if err != nil {
		return fmt.Errorf("gtk.ComboBoxTextNew: %w", err)
	}
	w.target.AppendText("Escape colour")
	w.target.AppendText("Bounded colour")
	w.target.SetActive(0)
	w.target.Connect("changed", func() { w.loadPickerColour() })
	box.PackStart(w.target, false, false, 0)

	row, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 6)
	if err != nil {
		return fmt.Errorf("gtk.BoxNew: %w", err)
	}

	w.wheelImage, err = gtk.ImageNew()
	if err != nil {
		return fmt.Errorf("gtk.ImageNew: %w", err)
	}
	wheelBox, err := pointerBox(w.wheelImage, func(x, y float64) { w.picker.Wheel.Touch(x, y) })
	if err != nil {
		return err
	}
	row.PackStart(wheelBox, false, false, 0)

	w.sliderImage, err = gtk.ImageNew()
	if err != nil {
		return fmt.Errorf("gtk.ImageNew: %w", err)
	}
	sliderBox, err := pointerBox(w.sliderImage, func(x, y float64) { w.picker.Slider.Touch(x, y) })
	if err != nil {
		return err
	}
	row.PackStart(sliderBox, false, false, 0)
	box.PackStart(row, false, false, 0)

	w.previewLabel, _ = gtk.LabelNew("")
	w.previewLabel.SetXAlign(0)
	box.PackStart(w.previewLabel, false, false, 0)

	label, _ := gtk.LabelNew("Bounded opacity")
	label.SetXAlign(0)
	box.PackStart(label, false, false, 0)

	w.boundedAlpha, err = gtk.ScaleNewWithRange(gtk.ORIENTATION_HORIZONTAL, 0, 100, 1)
	if err != nil {
		return fmt.Errorf("gtk.ScaleNewWithRange: %w", err)
	}
	w.boundedAlpha.SetValue(float64(params.DefaultBoundedAlpha))
	if v, ok := w.store.Get(params.BoundedAlpha.String()); ok {
		if a, ok := v.(int); ok {
			w.boundedAlpha.SetValue(float64(a))
		}
	}
	w.boundedAlpha.Connect("value-changed", func(scale *gtk.Scale) {
		w.set(params.BoundedAlpha, int(scale.GetValue()))
	})
	box.PackStart(w.boundedAlpha, false, false, 0)

	apply, err := gtk.ButtonNewWithLabel("Apply colour")
	if err != nil {
		return fmt.Errorf("gtk.ButtonNewWithLabel: %w", err)
	}
	apply.Connect("clicked", func() {
		key := colourTargets[w.target.GetActive()]
		if err := w.picker.Confirm(w.client, key.String()); err != nil {
			showError(w.ApplicationWindow, err)
		}
	})
	box.PackStart(apply, false, false, 0)

	w.picker.OnChange = func(uint32) { w.drawPicker() }
	w.loadPickerColour()
	w.drawPicker()
	return nil
}

// pointerBox wraps image so presses and drags on it call touch.
func pointerBox(image *gtk.Image, touch func(x, y float64)) (*gtk.EventBox, error) {
	eventBox, err := gtk.EventBoxNew()
	if err != nil {
		return nil, fmt.Errorf("gtk.EventBoxNew: %w", err)
	}
	eventBox.AddEvents(int(gdk.BUTTON_PRESS_MASK) | int(gdk.BUTTON_MOTION_MASK))
	eventBox.Connect("button-press-event", func(eb *gtk.EventBox, event *gdk.Event) bool {
		button := gdk.EventButtonNewFromEvent(event)
		touch(button.X(), button.Y())
		return true
	})
	eventBox.Connect("motion-notify-event", func(eb *gtk.EventBox, event *gdk.Event) bool {
		touch(gdk.EventMotionNewFromEvent(event).MotionVal())
		return true
	})
	eventBox.Add(image)
	return eventBox, nil
}

func (w *ConfigWindow) loadPickerColour() {
	key := colourTargets[w.target.GetActive()]
	argb := params.DefaultEscapeColour
	if key == params.BoundedColour {
		argb = params.DefaultBoundedColour
	}
	if v, ok := w.store.Get(key.String()); ok {
		if i, ok := v.(int); ok {
			argb = uint32(i)
		}
	}
	w.picker.SetARGB(argb)
	w.drawPicker()
}

func (w *ConfigWindow) drawPicker() {
	h, s, v := w.picker.HSV()

	wheel, err := rasterPixbuf(wheelSize, wheelSize, func(dc *gg.Context) error {
		return w.picker.Wheel.Draw(dc, v)
	})
	if err != nil {
		logging.Logger().Warn("draw colour wheel", "err", err)
		return
	}
	w.wheelImage.SetFromPixbuf(wheel)

	slider, err := rasterPixbuf(sliderWidth, wheelSize, func(dc *gg.Context) error {
		return w.picker.Slider.Draw(dc, h, s)
	})
	if err != nil {
		logging.Logger().Warn("draw value slider", "err", err)
		return
	}
	w.sliderImage.SetFromPixbuf(slider)

	w.previewLabel.SetText(fmt.Sprintf("#%06x", w.picker.ARGB(0xff)&0xffffff))
}

// rasterPixbuf draws into a fresh width*height context and hands the result
// to GTK as a pixbuf.
func rasterPixbuf(width, height int, draw func(dc *gg.Context) error) (*gdk.Pixbuf, error) {
	dc := gg.NewContext(width, height)
	defer dc.Close()

	if err := draw(dc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return gdk.PixbufNewFromBytesOnly(buf.Bytes())
}

func (w *ConfigWindow) addSave(box *gtk.Box) error {
	button, err := gtk.ButtonNewWithLabel("Save image")
	if err != nil {
		return fmt.Errorf("gtk.ButtonNewWithLabel: %w", err)
	}
	button.Connect("clicked", func() {
		name, ok := w.chooseFile()
		if !ok {
			return
		}
		width, height := w.render.Engine().Pipeline().Size()
		opts := DefaultSaveOptions(name)
		if width > 0 && height > 0 {
			opts.Width, opts.Height = width*2, height*2
		}
		save(w.ctx, w.ApplicationWindow, opts, w.snapshot())
	})
	box.PackEnd(button, false, false, 0)
	return nil
}

func (w *ConfigWindow) chooseFile() (string, bool) {
	dialog, err := gtk.FileChooserDialogNewWith2Buttons(
		"Save Image",
		w,
		gtk.FILE_CHOOSER_ACTION_SAVE,
		"Cancel", gtk.RESPONSE_CANCEL,
		"Save", gtk.RESPONSE_ACCEPT,
	)
	if err != nil {
		showError(w.ApplicationWindow, err)
		return "", false
	}
	defer dialog.Destroy()

	dialog.SetDoOverwriteConfirmation(true)
	dialog.SetCurrentName("julia.png")
	if dialog.Run() != gtk.RESPONSE_ACCEPT {
		return "", false
	}
	return dialog.GetFilename(), true
}

// refresh shows a value changed elsewhere, such as by a gesture or a remote
// client, without sending it back.
func (w *ConfigWindow) refresh(name string) {
	key, ok := params.ParseKey(name)
	if !ok {
		return
	}

	w.refreshing = true
	defer func() { w.refreshing = false }()

	p := w.snapshot()
	switch key {
	case params.Zoom:
		w.zoom.SetValue(float64(p.Zoom))
	case params.Constant:
		w.constant.SetText(params.FormatConstant(p.Constant))
	case params.OutputColour, params.BoundedColour:
		if colourTargets[w.target.GetActive()] == key {
			w.loadPickerColour()
		}
	}
}
