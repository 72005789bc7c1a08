package pngenc

import (
	"bytes"
	"image/png"
	"testing"
)

func TestEncode_ProducesDecodablePaletted(t *testing.T) {
	palette := []byte{
		0xFF, 0xFF, 0xFF, // slot 0: white (unpainted)
		0x00, 0x00, 0x00, // slot 1: black (color 0)
		0xFF, 0x00, 0x00, // slot 2: red (color 1)
	}
	trns := []byte{0, 255, 255}

	cells := []uint32{0, 1, (1 << 8) | 2, 0}
	data, err := Encode(cells, 2, palette, trns)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	paletted, ok := img.(interface{ ColorIndexAt(x, y int) uint8 })
	if !ok {
		t.Fatal("decoded image is not indexed")
	}
	if got := paletted.ColorIndexAt(0, 0); got != 0 {
		t.Errorf("pixel(0,0) index = %d, want 0 (unpainted)", got)
	}
	if got := paletted.ColorIndexAt(1, 0); got != 1 {
		t.Errorf("pixel(1,0) index = %d, want 1", got)
	}
	if got := paletted.ColorIndexAt(0, 1); got != 2 {
		t.Errorf("pixel(0,1) index = %d, want 2", got)
	}
}
