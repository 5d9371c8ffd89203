package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Optimizer normalizes downloaded product images into a uniform square
// JPEG under a target file size.
type Optimizer struct {
	maxDimension int
	maxSizeKB    int
}

// NewOptimizer creates an optimizer with the given output constraints
func NewOptimizer(maxDimension, maxSizeKB int) *Optimizer {
	return &Optimizer{
		maxDimension: maxDimension,
		maxSizeKB:    maxSizeKB,
	}
}

// Decode parses raw image bytes. JPEG, PNG, GIF and WebP are supported.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Optimize converts data into a square JPEG no larger than the
// configured dimension, flattening transparency onto white and walking
// the quality ladder down until the size target is met.
func (o *Optimizer) Optimize(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	square := centerCropSquare(flattenOnWhite(img))
	if side := square.Bounds().Dx(); side > o.maxDimension {
		square = resizeSquare(square, o.maxDimension)
	}

	var best []byte
	for quality := 95; quality >= 45; quality -= 10 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, square, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		best = buf.Bytes()
		if buf.Len() <= o.maxSizeKB*1024 {
			return best, nil
		}
	}

	// Even the lowest quality exceeded the target; ship the smallest.
	return best, nil
}

// flattenOnWhite composites the image over a white background so
// transparent PNG and WebP packshots render cleanly as JPEG.
func flattenOnWhite(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, bounds, img, bounds.Min, draw.Over)
	return out
}

func centerCropSquare(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == h {
		return img
	}

	side := w
	if h < side {
		side = h
	}
	x0 := bounds.Min.X + (w-side)/2
	y0 := bounds.Min.Y + (h-side)/2

	out := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(out, out.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return out
}

func resizeSquare(img *image.RGBA, side int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}
