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
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
)

// Gap interpolation parameters: kernel size is a quarter of the widest gap,
// clamped to a minimum, applied for a fixed number of relaxation iterations.
// The quarter is an empirical tuning value, not a law; interpolate_width
// overrides it
const (
	interpolateMinSize    = 5
	interpolateIterations = 10
)

// Collapses the masked, oriented cube into a scan-row profile by taking the
// median along the non-scan spatial axis, ignoring bad values. The median is
// robust to a minority of still-contaminated spectra surviving the mask. Row
// positions with no unmasked spectra stay bad for the gap interpolator to
// resolve
func CollapseRows(masked *cube.Cube, o *Orientation, c *ops.Context) (*cube.Cube, error) {
	profile, err:=kernel.CollapseMedian(masked, o.CollapseAxis())
	if err!=nil { return nil, err }
	fmt.Fprintf(c.Log, "%d: Collapsed %s cube along %s into %s scan-row profile\n",
	            masked.ID, masked.DimensionsToString(), axisName(o.CollapseAxis()), profile.DimensionsToString())
	return profile, nil
}

// Fills the masked gaps of a scan-row profile by iterative relaxation. The
// interpolation kernel is sized from the widest contiguous bad channel run;
// the gap bounds are computed once per cube and reused on later passes via the
// cached argument, keeping refinement deterministic. Afterwards the profile
// contains no bad values. With interpolation disabled, bad values are replaced
// by nearest-good substitution only
func InterpolateGaps(profile *cube.Cube, p *config.Params, cached *kernel.GapBounds, c *ops.Context) (filled *cube.Cube, gap *kernel.GapBounds, err error) {
	gap=cached
	if gap==nil {
		if g, found:=kernel.WidestGap(profile); found {
			gap=&g
		}
	}

	size:=interpolationSize(p, gap)

	if !p.Interpolate {
		filled=kernel.FillBad(profile, size, 0) // relaxation off, nearest-good sweep only
		return filled, gap, nil
	}

	filled=kernel.FillBad(profile, size, interpolateIterations)
	if gap!=nil {
		fmt.Fprintf(c.Log, "%d: Filled scan-row profile gaps, widest %d channels [%d..%d], kernel size %d\n",
		            profile.ID, gap.Width(), gap.Lo, gap.Hi, size)
	}
	return filled, gap, nil
}

// Derives the interpolation kernel size: the configured width when given, else
// a quarter of the widest gap, with a minimum floor when no or only a narrow
// gap was detected
func interpolationSize(p *config.Params, gap *kernel.GapBounds) int32 {
	if p.InterpolateWidth>0 { return int32(p.InterpolateWidth) }
	size:=int32(interpolateMinSize)
	if gap!=nil && gap.Width()/4>size {
		size=gap.Width()/4
	}
	return size
}
