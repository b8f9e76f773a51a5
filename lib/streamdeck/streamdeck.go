// Package streamdeck drives Elgato Stream Deck keypads over USB HID and
// turns them into Watchout control surfaces.
package streamdeck

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"

	xdraw "golang.org/x/image/draw"

	"rafaelmartins.com/p/usbhid"
)

const elgatoVendorID = 0x0fd9

type Model struct {
	Name     string
	Keys     int
	KeyRows  int
	KeyCols  int
	KeySize  int
	FlipKeys bool
}

var ModelXL = Model{
	Name:     "XL",
	Keys:     32,
	KeyRows:  4,
	KeyCols:  8,
	KeySize:  96,
	FlipKeys: true,
}

var ModelPlus = Model{
	Name:    "Plus",
	Keys:    8,
	KeyRows: 2,
	KeyCols: 4,
	KeySize: 120,
}

var productModels = map[uint16]*Model{
	0x006c: &ModelXL,
	0x008f: &ModelXL,
	0x0084: &ModelPlus,
}

type Device struct {
	dev   *usbhid.Device
	model *Model
}

// Open opens the first supported Stream Deck found.
func Open() (*Device, error) {
	devices, err := usbhid.Enumerate(func(dev *usbhid.Device) bool {
		return dev.VendorId() == elgatoVendorID && productModels[dev.ProductId()] != nil
	})
	if err != nil {
		return nil, fmt.Errorf("streamdeck: enumerate: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("streamdeck: no device found")
	}

	dev := devices[0]
	if err := dev.Open(true); err != nil {
		return nil, fmt.Errorf("streamdeck: open: %w", err)
	}
	return &Device{dev: dev, model: productModels[dev.ProductId()]}, nil
}

func (d *Device) Model() *Model        { return d.model }
func (d *Device) Keys() int            { return d.model.Keys }
func (d *Device) Close() error         { return d.dev.Close() }
func (d *Device) SerialNumber() string { return d.dev.SerialNumber() }
func (d *Device) Product() string      { return d.dev.Product() }

func (d *Device) SetBrightness(perc byte) error {
	if perc > 100 {
		perc = 100
	}
	pl := make([]byte, d.dev.GetFeatureReportLength())
	pl[0] = 0x08
	pl[1] = perc
	return d.dev.SetFeatureReport(3, pl)
}

func (d *Device) SetKeyColor(key int, c color.Color) error {
	sz := d.model.KeySize
	img := image.NewRGBA(image.Rect(0, 0, sz, sz))
	xdraw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, xdraw.Src)
	return d.SetKeyImage(key, img)
}

func (d *Device) SetKeyImage(key int, img image.Image) error {
	if key < 0 || key >= d.model.Keys {
		return fmt.Errorf("streamdeck: invalid key %d", key)
	}

	sz := d.model.KeySize
	scaled := image.NewRGBA(image.Rect(0, 0, sz, sz))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)

	var src image.Image = scaled
	if d.model.FlipKeys {
		src = flip(scaled)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 100}); err != nil {
		return err
	}
	return d.sendKeyImage(byte(key), buf.Bytes())
}

// flip rotates img by 180 degrees; the XL mounts its key displays upside
// down.
func flip(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.X-1-x+b.Min.X, b.Max.Y-1-y+b.Min.Y, img.At(x, y))
		}
	}
	return out
}

func (d *Device) ClearAllKeys() error {
	for i := 0; i < d.model.Keys; i++ {
		if err := d.SetKeyColor(i, color.Black); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) sendKeyImage(key byte, imgData []byte) error {
	reportLen := d.dev.GetOutputReportLength()
	for _, payload := range imagePages(key, imgData, int(reportLen)) {
		if err := d.dev.SetOutputReport(2, payload); err != nil {
			return err
		}
	}
	return nil
}

const keyImageHeaderLen = 8

// imagePages splits a JPEG key image into output reports of reportLen bytes,
// each with the 8-byte key image header.
func imagePages(key byte, imgData []byte, reportLen int) [][]byte {
	payloadLen := reportLen - keyImageHeaderLen
	var pages [][]byte
	for start, page := 0, 0; start < len(imgData); page++ {
		end := start + payloadLen
		last := byte(0)
		if end >= len(imgData) {
			end = len(imgData)
			last = 1
		}

		chunk := imgData[start:end]
		report := make([]byte, reportLen)
		copy(report, []byte{
			0x02,
			0x07,
			key,
			last,
			byte(len(chunk)),
			byte(len(chunk) >> 8),
			byte(page),
			byte(page >> 8),
		})
		copy(report[keyImageHeaderLen:], chunk)
		pages = append(pages, report)
		start = end
	}
	return pages
}

type KeyEvent struct {
	Key     int
	Pressed bool
	Time    time.Time
}

// ReadKeys sends an event for every key state change until reading fails.
func (d *Device) ReadKeys(ch chan<- KeyEvent) error {
	states := make([]byte, d.model.Keys)
	for {
		_, buf, err := d.dev.GetInputReport()
		if err != nil {
			return err
		}
		for _, ev := range keyChanges(buf, states, time.Now()) {
			ch <- ev
		}
	}
}

// keyChanges compares a key input report with the previous key states and
// updates them.
func keyChanges(buf []byte, states []byte, t time.Time) []KeyEvent {
	const keyStart = 3
	if len(buf) < 4 || buf[0] != 0x00 {
		return nil
	}
	var events []KeyEvent
	for i := range states {
		if keyStart+i >= len(buf) {
			break
		}
		st := buf[keyStart+i]
		if st != states[i] {
			events = append(events, KeyEvent{Key: i, Pressed: st > 0, Time: t})
			states[i] = st
		}
	}
	return events
}
