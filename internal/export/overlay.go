package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
)

// Overlay palette. Pixels that were never built stay transparent so
// the overlay can sit on top of base imagery.
var (
	unchangedBuiltColor  = color.NRGBA{R: 255, G: 215, B: 0, A: 255}
	newConstructionColor = color.NRGBA{R: 220, G: 20, B: 20, A: 255}
)

// RenderChangeOverlay rasterizes the tri-state diff into a PNG: yellow
// for built in both years, red for new construction, transparent for
// everything else. One image pixel per grid cell, row 0 at the north
// edge.
func RenderChangeOverlay(cr *raster.ChangeRaster) ([]byte, error) {
	g := cr.Grid
	if len(cr.Classes) != g.Pixels() {
		return nil, fmt.Errorf("change raster has %d classes for %s", len(cr.Classes), g)
	}

	img := image.NewNRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			switch cr.Classes[g.Idx(row, col)] {
			case raster.ChangeUnchangedBuilt:
				img.SetNRGBA(col, row, unchangedBuiltColor)
			case raster.ChangeNewConstruction:
				img.SetNRGBA(col, row, newConstructionColor)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode change overlay: %w", err)
	}
	return buf.Bytes(), nil
}
