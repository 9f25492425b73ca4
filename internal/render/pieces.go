package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Glyph bodies on a 45x45 canvas. FILL and LINE are replaced per colour.
var glyphs = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="14" r="6" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<path d="M16 22 L29 22 L32 36 L13 36 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="10" y="36" width="25" height="4" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.Rook: `<path d="M11 9 L15 9 L15 13 L20 13 L20 9 L25 9 L25 13 L30 13 L30 9 L34 9 L34 16 L11 16 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="14" y="16" width="17" height="18" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="9" y="34" width="27" height="5" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.Knight: `<path d="M14 38 L14 30 C14 24 20 22 21 18 L14 21 L11 17 L20 8 L24 8 C32 10 35 18 33 38 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="20" cy="14" r="1.5" fill="LINE"/>`,
	nchess.Bishop: `<circle cx="22.5" cy="8" r="3" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<ellipse cx="22.5" cy="21" rx="8" ry="10" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<path d="M20 21 L25 21 M22.5 18.5 L22.5 23.5" stroke="LINE" stroke-width="1.5"/>
<rect x="11" y="33" width="23" height="5" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.Queen: `<path d="M9 14 L14 30 L31 30 L36 14 L28 24 L22.5 10 L17 24 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="9" cy="12" r="2.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="22.5" cy="8" r="2.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="36" cy="12" r="2.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="12" y="30" width="21" height="8" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.King: `<path d="M22.5 4 L22.5 14 M18 8 L27 8" stroke="LINE" stroke-width="2"/>
<path d="M10 20 C10 12 35 12 35 20 L31 32 L14 32 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="12" y="32" width="21" height="6" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
}

func pieceSVG(p nchess.Piece) (string, error) {
	body, ok := glyphs[p.Type()]
	if !ok {
		return "", fmt.Errorf("no glyph for piece %v", p)
	}
	fill, line := "#f8f8f8", "#1e1e1e"
	if p.Color() == nchess.Black {
		fill, line = "#262626", "#0a0a0a"
	}
	body = strings.NewReplacer("FILL", fill, "LINE", line).Replace(body)
	return `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">` + body + `</svg>`, nil
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
