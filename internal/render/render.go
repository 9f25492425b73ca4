package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	squareSize = 64
	boardSize  = squareSize * 8
	margin     = 24
	headerH    = 28
)

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	background     = color.RGBA{40, 36, 32, 255}
	lastMoveColor  = color.NRGBA{R: 246, G: 232, B: 88, A: 120}
	checkColor     = color.NRGBA{R: 220, G: 40, B: 40, A: 150}
	hintColor      = color.NRGBA{R: 60, G: 130, B: 230, A: 200}
	textColor      = color.RGBA{236, 236, 236, 255}
	coordinateFace = basicfont.Face7x13
)

// Options controls overlays. Squares are algebraic names ("e4"); Hint is a
// UCI move.
type Options struct {
	Flipped  bool
	LastMove [2]string
	Check    string
	Hint     string
	Header   string
}

// PNG draws the position in fen.
func PNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	board := nchess.NewGame(opt).Position().Board()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	width := boardSize + margin*2
	height := boardSize + margin*2 + headerH
	origin := image.Point{X: margin, Y: margin + headerH}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			draw.Draw(img, squareRect(f, r, opts.Flipped, origin), image.NewUniform(squareColor(f, r)), image.Point{}, draw.Src)
		}
	}
	for _, sq := range opts.LastMove {
		overlay(img, sq, opts.Flipped, origin, lastMoveColor)
	}
	overlay(img, opts.Check, opts.Flipped, origin, checkColor)

	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			p := board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
			if p == nchess.NoPiece {
				continue
			}
			glyph, err := renderPieceImage(p, squareSize)
			if err != nil {
				return nil, err
			}
			rect := squareRect(f, r, opts.Flipped, origin)
			draw.Draw(img, rect, glyph, image.Point{}, draw.Over)
		}
	}

	if len(opts.Hint) >= 4 {
		outline(img, opts.Hint[:2], opts.Flipped, origin, hintColor)
		outline(img, opts.Hint[2:4], opts.Flipped, origin, hintColor)
	}
	drawCoordinates(img, opts.Flipped, origin)
	if opts.Header != "" {
		drawText(img, opts.Header, margin, margin+13)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareColor(f, r int) color.Color {
	if (f+r)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func squareRect(f, r int, flipped bool, origin image.Point) image.Rectangle {
	col, row := f, 7-r
	if flipped {
		col, row = 7-f, r
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func parseSquare(name string) (int, int, bool) {
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return 0, 0, false
	}
	return int(name[0] - 'a'), int(name[1] - '1'), true
}

func overlay(img *image.RGBA, sq string, flipped bool, origin image.Point, clr color.Color) {
	f, r, ok := parseSquare(sq)
	if !ok {
		return
	}
	draw.Draw(img, squareRect(f, r, flipped, origin), image.NewUniform(clr), image.Point{}, draw.Over)
}

func outline(img *image.RGBA, sq string, flipped bool, origin image.Point, clr color.Color) {
	f, r, ok := parseSquare(sq)
	if !ok {
		return
	}
	rect := squareRect(f, r, flipped, origin)
	const w = 4
	src := image.NewUniform(clr)
	for _, edge := range []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+w),
		image.Rect(rect.Min.X, rect.Max.Y-w, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+w, rect.Max.Y),
		image.Rect(rect.Max.X-w, rect.Min.Y, rect.Max.X, rect.Max.Y),
	} {
		draw.Draw(img, edge, src, image.Point{}, draw.Over)
	}
}

func drawCoordinates(img *image.RGBA, flipped bool, origin image.Point) {
	for i := 0; i < 8; i++ {
		file, rank := string(rune('a'+i)), string(rune('8'-i))
		if flipped {
			file, rank = string(rune('h'-i)), string(rune('1'+i))
		}
		x := origin.X + i*squareSize + squareSize/2 - 3
		drawText(img, file, x, origin.Y+boardSize+16)
		y := origin.Y + i*squareSize + squareSize/2 + 5
		drawText(img, rank, margin/2-3, y)
	}
}

func drawText(img *image.RGBA, text string, x, baseline int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: coordinateFace,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}
