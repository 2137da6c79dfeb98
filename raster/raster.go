// package raster converts rendered SVG markup into PNG bytes. It is a pure
// transform: no retries, no state, errors surface synchronously.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

// DefaultWidth is the fixed output width; height follows the source's
// intrinsic aspect ratio.
const DefaultWidth = 1200

// ErrNoIntrinsicSize indicates the SVG markup carries no usable dimensions.
var ErrNoIntrinsicSize = errors.New("svg markup has no intrinsic size")

// Options tune an export. The zero value is usable.
type Options struct {
	// Width is the output width in pixels. Zero means DefaultWidth.
	Width int

	// Background fills the canvas before the diagram is drawn. Nil leaves
	// the canvas transparent.
	Background color.Color
}

// Export rasterizes SVG markup to a PNG at a fixed width, preserving the
// aspect ratio of the markup's intrinsic dimensions.
func Export(svgMarkup string, opts Options) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(svgMarkup))
	if err != nil {
		return nil, fmt.Errorf("decoding svg markup: %w", err)
	}

	vb := icon.ViewBox
	if vb.W <= 0 || vb.H <= 0 {
		return nil, ErrNoIntrinsicSize
	}

	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	height := int(float64(width) * vb.H / vb.W)
	if height <= 0 {
		height = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if opts.Background != nil {
		xdraw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, xdraw.Src)
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseHexColor parses "#rgb" and "#rrggbb" color strings, the forms theme
// backgrounds arrive in from hosts.
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(s, "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("parsing color %q: %w", s, err)
		}
		r, g, b = r*17, g*17, b*17
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("parsing color %q: %w", s, err)
		}
	default:
		return nil, fmt.Errorf("parsing color %q: expected #rgb or #rrggbb", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
