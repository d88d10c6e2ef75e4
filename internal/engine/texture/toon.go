package texture

import (
	"image"
	"sort"
)

// ToonColors is the palette size of the toon filter.
const ToonColors = 6

// Toon reduces img to a ToonColors palette. The palette is sampled at even
// steps from the distinct colours ordered by distance from black; each pixel
// takes its nearest palette colour and keeps its alpha. Images with fewer
// distinct colours than the palette are returned unchanged.
func Toon(img *image.NRGBA) *image.NRGBA {
	palette := toonPalette(img)
	if palette == nil {
		return img
	}

	b := img.Rect
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			src := rgb{img.Pix[i], img.Pix[i+1], img.Pix[i+2]}
			c := nearest(palette, src)
			dst.Pix[i] = c.r
			dst.Pix[i+1] = c.g
			dst.Pix[i+2] = c.b
			dst.Pix[i+3] = img.Pix[i+3]
		}
	}
	return dst
}

type rgb struct{ r, g, b uint8 }

func (c rgb) dist(o rgb) int {
	dr := int(c.r) - int(o.r)
	dg := int(c.g) - int(o.g)
	db := int(c.b) - int(o.b)
	return dr*dr + dg*dg + db*db
}

func toonPalette(img *image.NRGBA) []rgb {
	seen := make(map[rgb]struct{})
	b := img.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			seen[rgb{img.Pix[i], img.Pix[i+1], img.Pix[i+2]}] = struct{}{}
		}
	}
	if len(seen) < ToonColors {
		return nil
	}

	colors := make([]rgb, 0, len(seen))
	for c := range seen {
		colors = append(colors, c)
	}
	var black rgb
	sort.Slice(colors, func(i, j int) bool {
		di, dj := colors[i].dist(black), colors[j].dist(black)
		if di != dj {
			return di < dj
		}
		ci, cj := colors[i], colors[j]
		if ci.r != cj.r {
			return ci.r < cj.r
		}
		if ci.g != cj.g {
			return ci.g < cj.g
		}
		return ci.b < cj.b
	})

	step := len(colors) / ToonColors
	palette := make([]rgb, ToonColors)
	for i := range palette {
		palette[i] = colors[i*step]
	}
	return palette
}

func nearest(palette []rgb, c rgb) rgb {
	best := palette[0]
	bestDist := best.dist(c)
	for _, p := range palette[1:] {
		if d := p.dist(c); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}
