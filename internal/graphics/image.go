package graphics

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Layer is an image placed at an offset on a composite canvas
type Layer struct {
	Image  image.Image
	Offset image.Point
}

// LoadIcon decodes the image at path and scales it to size x size pixels
func LoadIcon(path string, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", size)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening icon: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding icon %s: %w", path, err)
	}

	return Scale(src, image.Pt(size, size)), nil
}

// Scale resamples src to the given size
func Scale(src image.Image, size image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// Rotate rotates src counter-clockwise by degrees around its centre. The result
// keeps the bounds of src, corners that rotate out of them are cut off.
func Rotate(src image.Image, degrees float64) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rectangle{Max: b.Size()})

	// full turns copy without resampling
	if math.Mod(degrees, 360) == 0 {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	ox, oy := float64(b.Min.X), float64(b.Min.Y)

	// maps source coordinates to destination coordinates, y grows downwards so a
	// positive angle turns the image counter-clockwise on screen
	s2d := f64.Aff3{
		cos, sin, cx - cos*(cx+ox) - sin*(cy+oy),
		-sin, cos, cy + sin*(cx+ox) - cos*(cy+oy),
	}
	xdraw.BiLinear.Transform(dst, s2d, src, b, draw.Over, nil)

	return dst
}

// Centered returns a layer placing img in the middle of a canvas of the given size
func Centered(img image.Image, canvas image.Point) Layer {
	size := img.Bounds().Size()
	return Layer{
		Image:  img,
		Offset: image.Pt((canvas.X-size.X)/2, (canvas.Y-size.Y)/2),
	}
}

// Composite draws the layers in order onto a transparent canvas of the given size
func Composite(size image.Point, layers ...Layer) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: size})
	for _, l := range layers {
		b := l.Image.Bounds()
		r := image.Rectangle{Min: l.Offset, Max: l.Offset.Add(b.Size())}
		draw.Draw(dst, r, l.Image, b.Min, draw.Over)
	}
	return dst
}
