package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage renders a w-by-h gradient so encoded outputs are non-trivial
func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(4 * x), uint8(4 * y), uint8(2 * (x + y)), 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimizeProducesSquareJPEG(t *testing.T) {
	opt := NewOptimizer(200, 500)
	data := encodePNG(t, testImage(600, 400))

	out, err := opt.Optimize(data)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestOptimizeKeepsSmallImages(t *testing.T) {
	opt := NewOptimizer(1000, 500)
	data := encodePNG(t, testImage(120, 120))

	out, err := opt.Optimize(data)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestOptimizeRespectsSizeTarget(t *testing.T) {
	opt := NewOptimizer(400, 8)
	data := encodePNG(t, testImage(800, 800))

	out, err := opt.Optimize(data)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 8*1024)
}

func TestOptimizeFlattensTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	// Fully transparent input should come out white, not black
	data := func() []byte {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}()

	opt := NewOptimizer(100, 500)
	out, err := opt.Optimize(data)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, g, b, _ := decoded.At(25, 25).RGBA()
	assert.Greater(t, r, uint32(60000))
	assert.Greater(t, g, uint32(60000))
	assert.Greater(t, b, uint32(60000))
}

func TestOptimizeRejectsGarbage(t *testing.T) {
	opt := NewOptimizer(200, 500)
	_, err := opt.Optimize([]byte("not an image"))
	assert.Error(t, err)
}

func TestDedupIndex(t *testing.T) {
	index := NewDedupIndex()

	first := testImage(64, 64)
	assert.False(t, index.IsNearDuplicate("acme soap", first))
	assert.True(t, index.IsNearDuplicate("acme soap", first), "identical image should be flagged")

	// Reversed gradient flips every dHash bit relative to first
	different := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			different.Set(x, y, color.RGBA{uint8(255 - 4*x), uint8(255 - 4*x), uint8(255 - 4*x), 255})
		}
	}
	assert.False(t, index.IsNearDuplicate("acme soap", different))
}

func TestDedupIndexFamiliesAreIsolated(t *testing.T) {
	index := NewDedupIndex()

	img := testImage(64, 64)
	assert.False(t, index.IsNearDuplicate("acme soap", img))
	assert.False(t, index.IsNearDuplicate("other brand", img), "families must not share hashes")
}

func TestHasStockMetadata(t *testing.T) {
	assert.False(t, HasStockMetadata(nil))
	assert.False(t, HasStockMetadata([]byte("junk")))
	assert.False(t, HasStockMetadata(encodePNG(t, testImage(32, 32))))
}

func TestMatchesStockKeyword(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"Copyright ACME Ltd", false},
		{"(c) Shutterstock Inc", true},
		{"Getty Images / contributor", true},
		{"photo by iStockPhoto", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesStockKeyword(tt.value), "value %q", tt.value)
	}
}
