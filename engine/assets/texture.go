package assets

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spaghettifunk/vkframe/engine/core"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureData is tightly packed 8-bit RGBA, top row first.
type TextureData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// LoadTexture decodes any registered image format into RGBA. An empty path
// returns the built in checkerboard.
func LoadTexture(path string) (*TextureData, error) {
	if path == "" {
		return Checkerboard(256, 8), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}
	core.LogDebug("decoded %s texture %s", format, path)
	return FromImage(img), nil
}

func FromImage(img image.Image) *TextureData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &TextureData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}
}

// Checkerboard builds a size x size texture split into cells x cells squares.
func Checkerboard(size, cells int) *TextureData {
	light := color.RGBA{R: 230, G: 230, B: 230, A: 255}
	dark := color.RGBA{R: 40, G: 40, B: 60, A: 255}
	cell := size / cells
	if cell == 0 {
		cell = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := light
			if (x/cell+y/cell)%2 == 1 {
				c = dark
			}
			img.SetRGBA(x, y, c)
		}
	}
	return FromImage(img)
}
