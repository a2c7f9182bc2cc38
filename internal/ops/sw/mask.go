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
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
	"github.com/mlnoga/swclean/internal/stats"
)

// Spectral smoothing sigma and minimal clump width for the volumetric strategy
const (
	volumetricSigma    = 2.0
	volumetricMinWidth = 3
	volumetricNSigma   = 5.0
)

// Builds an emission mask for the given cube using the configured strategy.
// The source cube must already be in oriented pixel space so spatial masks line
// up with the scan rows. An optional precomputed moment map overrides the
// spatial-image strategy's own spectral collapse. When applied by addition, the
// mask leaves baseline-only voxels unchanged and turns emission voxels bad.
// Returns nil without error when the strategy is none, or when the mask turned
// out degenerate and the strategy had to be disabled
func BuildMask(src *cube.Cube, moment *cube.Cube, p *config.Params, c *ops.Context) (*cube.Cube, error) {
	switch p.EmissionMaskStrategy {
	case config.MaskNone:
		return nil, nil
	case config.MaskSpatialImage:
		return buildSpatialMask(src, moment, p, c)
	case config.MaskVelocityRanges:
		return buildVelocityMask(src, p.Extents(), c)
	case config.MaskVolumetric:
		return buildVolumetricMask(src, c)
	}
	return nil, fmt.Errorf("unknown emission mask strategy %q", p.EmissionMaskStrategy)
}

// Thresholds a moment map into a 2D spatial mask, broadcast spectrally on
// application. A moment map that is entirely emission cannot yield a baseline
// estimate; that degenerate case disables the mask with a warning instead of
// aborting the run
func buildSpatialMask(src *cube.Cube, moment *cube.Cube, p *config.Params, c *ops.Context) (*cube.Cube, error) {
	var err error
	if moment==nil {
		moment, err=kernel.CollapseMeanSpectral(src)
		if err!=nil { return nil, err }
	} else if moment.Naxisn[0]!=src.Naxisn[0] || moment.Naxisn[1]!=src.Naxisn[1] {
		return nil, fmt.Errorf("cannot mask %s cube with %s moment map", src.DimensionsToString(), moment.DimensionsToString())
	}

	mask:=cube.NewCubeFromNaxisn(moment.Naxisn, kernel.Threshold(moment.Data, p.EmissionThreshold))
	if mask.NumGood()==0 {
		c.Warnf("%d: moment map is entirely above emission threshold %g, disabling spatial mask\n", src.ID, p.EmissionThreshold)
		return nil, nil
	}
	fmt.Fprintf(c.Log, "%d: Spatial emission mask excludes %d of %d pixels above %g\n",
	            src.ID, int(mask.Pixels)-mask.NumGood(), mask.Pixels, p.EmissionThreshold)
	return mask, nil
}

// Marks every voxel whose spectral coordinate falls into one of the given
// extents as bad. Extents are interpreted in world coordinates when the cube
// carries a spectral mapping, as channel indices otherwise
func buildVelocityMask(src *cube.Cube, extents []config.Extent, c *ops.Context) (*cube.Cube, error) {
	if len(src.Naxisn)!=3 { return nil, fmt.Errorf("cannot build velocity mask for %s cube", src.DimensionsToString()) }
	nx, ny, nc:=src.Naxisn[0], src.Naxisn[1], src.Naxisn[2]

	badChannel:=make([]bool, nc)
	numBad:=int32(0)
	for _,e:=range extents {
		lo, hi:=extentToChannels(src.Wcs, e, nc)
		for ch:=lo; ch<=hi; ch++ {
			if !badChannel[ch] {
				badChannel[ch]=true
				numBad++
			}
		}
	}
	if numBad==nc {
		c.Warnf("%d: emission extents cover all %d channels, disabling velocity mask\n", src.ID, nc)
		return nil, nil
	}

	mask:=cube.NewCubeFromNaxisn(src.Naxisn, nil)
	nan:=float32(math.NaN())
	plane:=nx*ny
	for ch:=int32(0); ch<nc; ch++ {
		if !badChannel[ch] { continue }
		slice:=mask.Data[ch*plane:(ch+1)*plane]
		for i:=range slice { slice[i]=nan }
	}
	fmt.Fprintf(c.Log, "%d: Velocity emission mask excludes %d of %d channels\n", src.ID, numBad, nc)
	return mask, nil
}

// Converts one emission extent to an inclusive channel range, clamped to the
// spectral axis bounds
func extentToChannels(w *cube.Wcs, e config.Extent, nc int32) (lo, hi int32) {
	if w!=nil && w.Cdelt[2]!=0 {
		lo, hi=w.WorldToChannel(e.Lo), w.WorldToChannel(e.Hi)
	} else {
		lo, hi=int32(e.Lo), int32(e.Hi)
	}
	if hi<lo { lo, hi=hi, lo }
	if lo<0 { lo=0 }
	if hi>nc-1 { hi=nc-1 }
	return lo, hi
}

// Derives a per-voxel emission mask from clump detection on a spectrally
// smoothed version of the cube itself. Used on the refinement pass, where the
// partially corrected cube gives a much cleaner detection than a moment map.
// Each spatial pixel's smoothed spectrum is searched for contiguous runs above
// its own robust noise level
func buildVolumetricMask(src *cube.Cube, c *ops.Context) (*cube.Cube, error) {
	if len(src.Naxisn)!=3 { return nil, fmt.Errorf("cannot build volumetric mask for %s cube", src.DimensionsToString()) }
	nx, ny, nc:=src.Naxisn[0], src.Naxisn[1], src.Naxisn[2]

	smoothed:=kernel.GaussianSmoothSpectral(src, volumetricSigma)

	mask:=cube.NewCubeFromNaxisn(src.Naxisn, nil)
	nan:=float32(math.NaN())
	line:=make([]float32, nc)
	numBad:=0
	for y:=int32(0); y<ny; y++ {
		for x:=int32(0); x<nx; x++ {
			for ch:=int32(0); ch<nc; ch++ {
				line[ch]=smoothed.Data[(ch*ny+y)*nx+x]
			}
			location, scale:=stats.FastApproxLocationAndScale(line, len(line))
			if math.IsNaN(float64(location)) { continue }
			thresh:=location+volumetricNSigma*scale
			for _,clump:=range kernel.FindClumps1D(line, thresh, volumetricMinWidth) {
				for ch:=clump.Lo; ch<=clump.Hi; ch++ {
					mask.Data[(int32(ch)*ny+y)*nx+x]=nan
					numBad++
				}
			}
		}
	}
	if numBad==int(mask.Pixels) {
		c.Warnf("%d: volumetric mask marks every voxel as emission, disabling it\n", src.ID)
		return nil, nil
	}
	fmt.Fprintf(c.Log, "%d: Volumetric emission mask excludes %d of %d voxels\n", src.ID, numBad, mask.Pixels)
	return mask, nil
}
