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
	"math"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
)

// Grows the ripple-separated scan-row profile back to the rotated cube's shape
// by replication along the collapsed axis, derotates the resulting baseline
// cube, and subtracts it voxel-for-voxel from the original unmasked cube. The
// output cube has identical bounds and coordinate metadata to the original;
// only intensities change. Baseline values that fell outside the rotated
// footprint become zero, leaving the affected voxels uncorrected rather than bad
func SubtractBaseline(orig, rotated, profile *cube.Cube, o *Orientation, c *ops.Context) (*cube.Cube, error) {
	baseline, err:=kernel.GrowAxis(profile, o.CollapseAxis(), rotated.Naxisn[o.CollapseAxis()])
	if err!=nil { return nil, err }
	baseline.Wcs=rotated.Wcs.Clone() // growing does not preserve metadata

	baseline, err=Derotate(baseline, o)
	if err!=nil { return nil, err }
	zeroBadValues(baseline)

	corrected, err:=orig.Subtract(baseline)
	if err!=nil { return nil, err }
	corrected.Wcs=orig.Wcs.Clone()

	fmt.Fprintf(c.Log, "%d: Subtracted %s baseline cube from original\n", orig.ID, baseline.DimensionsToString())
	return corrected, nil
}

// Replaces bad values with zero, in place
func zeroBadValues(c *cube.Cube) {
	for i,v:=range c.Data {
		if math.IsNaN(float64(v)) { c.Data[i]=0 }
	}
}
