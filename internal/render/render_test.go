package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func centre(f, r int, flipped bool) image.Point {
	rect := squareRect(f, r, flipped, image.Point{X: margin, Y: margin + headerH})
	return image.Point{X: (rect.Min.X + rect.Max.X) / 2, Y: (rect.Min.Y + rect.Max.Y) / 2}
}

func sameRGB(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return ar == br && ag == bg && ab == bb
}

func TestPNGDrawsBoard(t *testing.T) {
	data, err := PNG(context.Background(), startFEN, Options{Header: "start"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img := decode(t, data)
	if b := img.Bounds(); b.Dx() != boardSize+2*margin || b.Dy() != boardSize+2*margin+headerH {
		t.Fatalf("unexpected size %v", b)
	}
	e4 := centre(4, 3, false)
	if !sameRGB(img.At(e4.X, e4.Y), lightSquare) {
		t.Fatalf("e4 should be an empty light square, got %v", img.At(e4.X, e4.Y))
	}
	d4 := centre(3, 3, false)
	if !sameRGB(img.At(d4.X, d4.Y), darkSquare) {
		t.Fatalf("d4 should be an empty dark square, got %v", img.At(d4.X, d4.Y))
	}
}

func TestPNGLastMoveOverlay(t *testing.T) {
	data, err := PNG(context.Background(), startFEN, Options{LastMove: [2]string{"e2", "e4"}, Flipped: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img := decode(t, data)
	e4 := centre(4, 3, true)
	if sameRGB(img.At(e4.X, e4.Y), lightSquare) {
		t.Fatalf("highlighted square must not keep its plain colour")
	}
}

func TestPNGRejectsBadFEN(t *testing.T) {
	if _, err := PNG(context.Background(), "nonsense", Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPNGHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PNG(ctx, startFEN, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}
