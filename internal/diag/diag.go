// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package diag writes diagnostic artifacts: scan-row profile heatmaps,
// receptor edginess plots and FITS dumps of intermediate cubes. All writers
// are best-effort; failures log a warning and never abort processing.
package diag

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
	"github.com/mlnoga/swclean/internal/cube"
)

// Minimum output size for heatmaps; small profiles are scaled up for inspection
const heatmapMinSize = 512

// Saves a 2-axis profile as a false-colour heatmap PNG in the diagnostics directory
func SaveProfileHeatmap(dir, name string, p *cube.Cube, log io.Writer) {
	if err:=writeProfileHeatmap(filepath.Join(dir, name), p); err!=nil {
		fmt.Fprintf(log, "WARNING diagnostic %s: %s\n", name, err.Error())
	}
}

// Saves a cube or profile as a FITS dump in the diagnostics directory
func SaveCube(dir, name string, c *cube.Cube, log io.Writer) {
	if err:=os.MkdirAll(dir, 0755); err!=nil {
		fmt.Fprintf(log, "WARNING diagnostic %s: %s\n", name, err.Error())
		return
	}
	if err:=c.WriteFile(filepath.Join(dir, name)); err!=nil {
		fmt.Fprintf(log, "WARNING diagnostic %s: %s\n", name, err.Error())
	}
}

func writeProfileHeatmap(fileName string, p *cube.Cube) error {
	if len(p.Naxisn)!=2 { return fmt.Errorf("cannot render %s array as heatmap", p.DimensionsToString()) }
	nRow, nc:=int(p.Naxisn[0]), int(p.Naxisn[1])

	s:=p.CalcStats()
	lo, hi:=s.Location-3*s.Scale, s.Location+3*s.Scale
	if !(hi>lo) { lo, hi=s.Min, s.Max }
	if !(hi>lo) { hi=lo+1 }

	// channel on the horizontal axis, scan-row position on the vertical
	img:=image.NewRGBA(image.Rect(0, 0, nc, nRow))
	for row:=0; row<nRow; row++ {
		for ch:=0; ch<nc; ch++ {
			v:=p.Data[ch*nRow+row]
			if math.IsNaN(float64(v)) {
				img.Set(ch, row, colorful.Color{R:0.5, G:0.5, B:0.5})
				continue
			}
			t:=float64((v-lo)/(hi-lo))
			if t<0 { t=0 }
			if t>1 { t=1 }
			img.Set(ch, row, colorful.Hsv(240*(1-t), 1, 1)) // blue=low, red=high
		}
	}

	scale:=1
	for (nc*scale<heatmapMinSize || nRow*scale<heatmapMinSize) && scale<64 { scale*=2 }
	out:=img
	if scale>1 {
		out=image.NewRGBA(image.Rect(0, 0, nc*scale, nRow*scale))
		xdraw.NearestNeighbor.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	}

	if err:=os.MkdirAll(filepath.Dir(fileName), 0755); err!=nil { return err }
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()
	return png.Encode(f, out)
}
