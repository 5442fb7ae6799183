// Package graphics implements the raster primitives used to build HUD overlays:
// loading and scaling icons, rotating them, drawing text and stacking layers.
package graphics

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// dpi of 72 makes font sizes equal to pixel sizes
const dpi = 72.0

// RelPoint is a position relative to the image size, {0.5, 0.5} is the centre
type RelPoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Typeface is a parsed TrueType font. It can be shared between goroutines,
// the writers created from it cannot.
type Typeface struct {
	font *truetype.Font
}

// LoadTypeface reads a TrueType font file. An empty path selects the bundled Go Regular font.
func LoadTypeface(path string) (*Typeface, error) {
	if path == "" {
		return ParseTypeface(goregular.TTF)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	tf, err := ParseTypeface(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tf, nil
}

func ParseTypeface(b []byte) (*Typeface, error) {
	parsedFont, err := freetype.ParseFont(b)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return &Typeface{font: parsedFont}, nil
}

// Writer draws text of a single size and colour
type Writer struct {
	context  *freetype.Context
	fontFace font.Face
}

// NewWriter creates a text writer. Writers are not safe for concurrent use and
// must be closed after use.
func NewWriter(tf *Typeface, size float64, c color.Color) *Writer {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(tf.font)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.NewUniform(c))

	return &Writer{
		context: ctx,
		fontFace: truetype.NewFace(tf.font, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingFull,
		}),
	}
}

func (w *Writer) Close() error {
	if w.fontFace != nil {
		return w.fontFace.Close()
	}
	return nil
}

// Measure returns the width and height of the rendered text in pixels
func (w *Writer) Measure(text string) image.Point {
	metrics := w.fontFace.Metrics()
	return image.Pt(
		font.MeasureString(w.fontFace, text).Round(),
		(metrics.Ascent + metrics.Descent).Round(),
	)
}

// Draw draws the text onto dst with its centre at the relative position pos
func (w *Writer) Draw(dst *image.RGBA, text string, pos RelPoint) error {
	if text == "" {
		return nil
	}

	w.context.SetClip(dst.Bounds())
	w.context.SetDst(dst)

	b := dst.Bounds()
	size := w.Measure(text)
	ascent := w.fontFace.Metrics().Ascent.Round()

	x := b.Min.X + int(float64(b.Dx())*pos.X) - size.X/2
	y := b.Min.Y + int(float64(b.Dy())*pos.Y) - size.Y/2 + ascent

	if _, err := w.context.DrawString(text, freetype.Pt(x, y)); err != nil {
		return fmt.Errorf("drawing text '%s': %w", text, err)
	}
	return nil
}

// DrawText is a one-off Draw with a temporary writer
func DrawText(dst *image.RGBA, text string, tf *Typeface, size float64, c color.Color, pos RelPoint) error {
	w := NewWriter(tf, size, c)
	defer w.Close()

	return w.Draw(dst, text, pos)
}
