// Package pngenc renders query.Frame cell buffers as indexed-palette PNGs,
// adapted from the teacher's image/png encoder to consume a Dataset's
// synthesized palette and transparency palette.
package pngenc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// encoder is reused across requests; image/png's Encoder is safe for
// concurrent use once constructed.
var encoder = &png.Encoder{CompressionLevel: png.BestSpeed}

// Encode renders a size*size buffer of packed (uid<<8)|(color+1) cells into
// an indexed-palette PNG. palette is palette_size*3 RGB bytes (slot 0 is
// reserved for the transparent/unpainted background); trnsPalette is the
// parallel per-slot alpha (0 for slot 0, 255 elsewhere).
func Encode(cells []uint32, size int, palette, trnsPalette []byte) ([]byte, error) {
	pal := buildPalette(palette, trnsPalette)

	img := image.NewPaletted(image.Rect(0, 0, size, size), pal)
	for i, cell := range cells {
		img.Pix[i] = byte(cell & 0xff)
	}

	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildPalette(rgb, trns []byte) color.Palette {
	n := len(rgb) / 3
	pal := make(color.Palette, n)
	for i := 0; i < n; i++ {
		a := byte(255)
		if i < len(trns) {
			a = trns[i]
		}
		pal[i] = color.NRGBA{R: rgb[i*3], G: rgb[i*3+1], B: rgb[i*3+2], A: a}
	}
	return pal
}
