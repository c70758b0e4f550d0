package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/barrace/internal/race"
)

var (
	white = color.RGBA{0xff, 0xff, 0xff, 0xff}
	grid  = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	black = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

// fades are the opacity steps each palette colour is pre-blended at.
var fades = []float64{0.25, 0.5, 0.75, 1}

// Rasterizer draws scenes as paletted images. Text is not drawn.
type Rasterizer struct {
	scale   float64
	palette color.Palette
}

func NewRasterizer(colors []string, scale float64) *Rasterizer {
	if scale <= 0 {
		scale = 1
	}
	p := color.Palette{white, grid, black}
	for _, hex := range colors {
		c := parseHex(hex)
		for _, a := range fades {
			p = append(p, blend(c, a))
		}
	}
	if len(p) > 256 {
		p = p[:256]
	}
	return &Rasterizer{scale: scale, palette: p}
}

// Frame rasterizes sc onto a white background with gridlines and bars.
func (r *Rasterizer) Frame(sc race.Scene) *image.Paletted {
	l := sc.Layout
	w := int(math.Round(l.Width * r.scale))
	h := int(math.Round(ViewBoxHeight * r.scale))
	img := image.NewPaletted(image.Rect(0, 0, w, h), r.palette)

	ox, oy := l.Margin.Left, l.Margin.Top
	for _, t := range sc.Ticks {
		r.fill(img, ox+t.X, oy, 1/r.scale, l.InnerHeight(), 1)
	}
	for _, b := range sc.Bars {
		if b.Opacity <= 0 {
			continue
		}
		idx := uint8(r.palette.Index(blend(parseHex(b.Color), b.Opacity)))
		r.fill(img, ox, oy+b.Y, b.Width, b.Height, idx)
	}
	return img
}

func (r *Rasterizer) fill(img *image.Paletted, x, y, w, h float64, idx uint8) {
	rect := image.Rect(
		int(math.Floor(x*r.scale)), int(math.Floor(y*r.scale)),
		int(math.Ceil((x+w)*r.scale)), int(math.Ceil((y+h)*r.scale)),
	).Intersect(img.Bounds())
	for py := rect.Min.Y; py < rect.Max.Y; py++ {
		for px := rect.Min.X; px < rect.Max.X; px++ {
			img.SetColorIndex(px, py, idx)
		}
	}
}

// MaxGIFFPS is the highest rate whose frame delay stays at or above 2cs.
// Viewers stretch shorter delays to 10cs.
const MaxGIFFPS = 50

// GIFRate clamps fps to what a GIF can play back faithfully.
func GIFRate(fps int) int {
	if fps <= 0 {
		return DefaultFPS
	}
	if fps > MaxGIFFPS {
		return MaxGIFFPS
	}
	return fps
}

// WriteGIF plays s to completion and encodes every step as one GIF frame.
// Rates above MaxGIFFPS are clamped.
func WriteGIF(w io.Writer, s *race.Session, fps int, scale float64) (int, error) {
	fps = GIFRate(fps)
	r := NewRasterizer(s.Options().Palette, scale)
	var frames []*image.Paletted
	n, err := Drive(s, fps, func(sc race.Scene) error {
		frames = append(frames, r.Frame(sc))
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, EncodeGIF(w, frames, fps)
}

// WriteGIFFile is WriteGIF into a new file at path, creating its directory.
func WriteGIFFile(path string, s *race.Session, fps int, scale float64) (n int, err error) {
	err = createFile(path, func(w io.Writer) error {
		n, err = WriteGIF(w, s, fps, scale)
		return err
	})
	return n, err
}

// EncodeGIFFile is EncodeGIF into a new file at path.
func EncodeGIFFile(path string, frames []*image.Paletted, fps int) error {
	return createFile(path, func(w io.Writer) error {
		return EncodeGIF(w, frames, fps)
	})
}

func createFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(file)
}

// EncodeGIF writes frames as a looping animation played at fps. Delays are
// whole centiseconds, so each one is rounded against the running total and
// the animation as a whole keeps the requested rate.
func EncodeGIF(w io.Writer, frames []*image.Paletted, fps int) error {
	if len(frames) == 0 {
		return errors.New("encode gif: no frames")
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	anim := gif.GIF{LoopCount: 0}
	for i, f := range frames {
		anim.Image = append(anim.Image, f)
		anim.Delay = append(anim.Delay, centis(i+1, fps)-centis(i, fps))
	}
	if err := gif.EncodeAll(w, &anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

// centis is the start of frame i in centiseconds.
func centis(i, fps int) int {
	return int(math.Round(float64(i) * 100 / float64(fps)))
}

// blend mixes c over white at opacity a.
func blend(c color.RGBA, a float64) color.RGBA {
	a = math.Max(0, math.Min(1, a))
	mix := func(v uint8) uint8 {
		return uint8(math.Round(float64(v)*a + 255*(1-a)))
	}
	return color.RGBA{mix(c.R), mix(c.G), mix(c.B), 0xff}
}

func parseHex(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return black
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return black
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}
