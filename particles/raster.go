/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package particles

import (
	"fmt"
	"image"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

const (
	Width    = 1024
	Height   = 512
	FontSize = 150

	litThreshold = 128
)

type typeface struct {
	font *sfnt.Font
	face font.Face
}

// Rasterizer draws text into an off-screen grayscale bitmap.
type Rasterizer struct {
	mu    sync.Mutex
	buf   sfnt.Buffer
	faces []typeface
}

// NewRasterizer builds a font stack from paths, in order, with the bundled
// Go Bold face last. Each rune is drawn with the first face that has a glyph
// for it; runes no face covers are left out of the bitmap. Go Bold has no
// CJK glyphs, so Chinese text needs a font such as Noto Sans TC in the stack.
func NewRasterizer(paths ...string) (*Rasterizer, error) {
	r := &Rasterizer{}

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}

		f, err := parseFont(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}

		if err := r.push(f); err != nil {
			return nil, err
		}
	}

	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if err := r.push(f); err != nil {
		return nil, err
	}

	return r, nil
}

// parseFont accepts single fonts and collections (.ttc/.otc), taking the
// first font of a collection.
func parseFont(data []byte) (*sfnt.Font, error) {
	f, err := opentype.Parse(data)
	if err == nil {
		return f, nil
	}

	c, cerr := opentype.ParseCollection(data)
	if cerr != nil {
		return nil, err
	}
	return c.Font(0)
}

func (r *Rasterizer) push(f *sfnt.Font) error {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("create font face: %w", err)
	}

	r.faces = append(r.faces, typeface{font: f, face: face})

	return nil
}

// pick returns the first face with a real glyph for ch, or nil.
func (r *Rasterizer) pick(ch rune) *typeface {
	for i := range r.faces {
		idx, err := r.faces[i].font.GlyphIndex(&r.buf, ch)
		if err == nil && idx != 0 {
			return &r.faces[i]
		}
	}
	return nil
}

type glyph struct {
	ch   rune
	face font.Face
}

// Covers reports whether every rune of text has a glyph in the stack.
func (r *Rasterizer) Covers(text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range text {
		if r.pick(ch) == nil {
			return false
		}
	}
	return true
}

// Render draws text centered on a black Width x Height canvas.
func (r *Rasterizer) Render(text string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	if text == "" {
		return img
	}

	// font.Face implementations keep glyph caches and are not safe for
	// concurrent use.
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		glyphs          []glyph
		advance         fixed.Int26_6
		ascent, descent fixed.Int26_6
	)
	for _, ch := range text {
		tf := r.pick(ch)
		if tf == nil {
			continue
		}

		a, _ := tf.face.GlyphAdvance(ch)
		advance += a

		m := tf.face.Metrics()
		ascent = max(ascent, m.Ascent)
		descent = max(descent, m.Descent)

		glyphs = append(glyphs, glyph{ch: ch, face: tf.face})
	}
	if len(glyphs) == 0 {
		return img
	}

	d := &font.Drawer{
		Dst: img,
		Src: image.White,
		Dot: fixed.Point26_6{
			X: (fixed.I(Width) - advance) / 2,
			Y: (fixed.I(Height) + ascent - descent) / 2,
		},
	}
	for _, g := range glyphs {
		d.Face = g.face
		d.DrawString(string(g.ch))
	}

	return img
}

// Lit returns the pixel indices (y*Width + x) of text's bitmap that are
// brighter than mid-gray.
func (r *Rasterizer) Lit(text string) []int {
	return LitPixels(r.Render(text))
}

func LitPixels(img *image.Gray) []int {
	b := img.Bounds()
	lit := make([]int, 0, 4096)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if row[x] > litThreshold {
				lit = append(lit, (y-b.Min.Y)*b.Dx()+x)
			}
		}
	}
	return lit
}
