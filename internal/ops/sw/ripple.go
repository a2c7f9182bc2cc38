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


package sw

import (
	"fmt"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
)

// Separates the baseline and standing-wave ripple from a gap-filled scan-row
// profile by cascaded box smoothing at increasing window widths, finest first.
// Each scale's smoothed layer is removed from the running residual before the
// next, coarser scale runs; the returned baseline is the filled profile minus
// the final residual, i.e. the union of all smoothed layers. A single scale
// cannot capture both a short-period ripple and a long-period drift; the
// cascade isolates both while discarding noise below the finest window
func SeparateRipple(filled *cube.Cube, widths []int, c *ops.Context) (*cube.Cube, error) {
	residual:=filled.Clone()
	for _,width:=range widths {
		layer:=kernel.BoxSmoothSpectral(residual, width)
		next, err:=residual.Subtract(layer)
		if err!=nil { return nil, err }
		residual=next
	}
	baseline, err:=filled.Subtract(residual)
	if err!=nil { return nil, err }
	fmt.Fprintf(c.Log, "%d: Separated ripple at %d scales %v from %s profile\n",
	            filled.ID, len(widths), widths, filled.DimensionsToString())
	return baseline, nil
}
