package assemble

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"

	// decoders for publisher page scans
	_ "image/gif"
	_ "image/png"
)

const jpegQuality = 92

// normalizeImage decodes src, flattens it onto white RGB and writes a baseline JPEG to dst.
func normalizeImage(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode image %s: %w", src, err)
	}

	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("image %s (%s) has no pixels", src, format)
	}
	rgb := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgb, rgb.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgb, rgb.Bounds(), img, b.Min, draw.Over)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create normalized image: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close normalized image: %w", cerr)
		}
	}()

	if err := jpeg.Encode(out, rgb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}
