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


// Package sw implements the standing-wave and baseline correction pipeline:
// orientation normalization, emission masking, scan-row baseline estimation,
// gap interpolation, multi-scale ripple separation, subtraction and iterative
// refinement. Entry point is the clean operator OpSWClean.
package sw

import (
	"fmt"
	"math"
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
)

// Rotations smaller than this are treated as identity to avoid needless
// resampling error
const orientTolerance = 0.01

// The orientation state of one cube: the rotation applied to align the scan
// axis with a pixel axis, and what is needed to undo it. Computed once per
// cube and reused across refinement passes
type Orientation struct {
	Angle      float32   // applied rotation in degrees; 0 if skipped
	ScanAxis   int       // pixel axis the scan direction is aligned with after rotation, 0=X 1=Y
	OrigNaxisn []int32   // spatial bounds before rotation, to restore on derotation
	Wcs        *cube.Wcs // original coordinate metadata, reattached after derotation
}

// Returns the spatial axis to collapse for scan-row baseline estimation,
// i.e. the non-scan axis
func (o *Orientation) CollapseAxis() int { return 1-o.ScanAxis }

// Aligns the scan axis of a cube with the nearer Cartesian pixel axis, so the
// rotation magnitude is at most 45 degrees. Map and scan position angles come
// from the parameters, or from the cube's own orientation metadata when set to
// auto. Returns the rotated and trimmed cube with reattached metadata, plus the
// orientation record needed to derotate. Skips rotation entirely when the net
// angle is within tolerance of zero
func Orient(f *cube.Cube, p *config.Params, c *ops.Context) (*cube.Cube, *Orientation, error) {
	mapPA, scanPA:=resolveAngles(f, p, c)

	delta:=normalizeAngle180(scanPA-mapPA)
	angle, scanAxis:=float32(-delta), 0
	if delta>45 {
		angle, scanAxis=90-delta, 1
	} else if delta< -45 {
		angle, scanAxis= -90-delta, 1
	}

	o:=&Orientation{
		Angle:      angle,
		ScanAxis:   scanAxis,
		OrigNaxisn: append([]int32(nil), f.Naxisn[:2]...),
		Wcs:        f.Wcs.Clone(),
	}

	if float32(math.Abs(float64(angle)))<orientTolerance {
		o.Angle=0
		return f, o, nil
	}

	rotated, err:=kernel.RotateSpatial(f, angle)
	if err!=nil { return nil, nil, err }
	rotated, err=kernel.TrimToValid(rotated)
	if err!=nil { return nil, nil, err }
	rotated.Wcs=f.Wcs.RotateBy(angle) // rotation does not preserve metadata

	fmt.Fprintf(c.Log, "%d: Oriented scan axis to %s via %.2f deg rotation, %s to %s\n",
	            f.ID, axisName(scanAxis), angle, f.DimensionsToString(), rotated.DimensionsToString())
	return rotated, o, nil
}

// Undoes the orientation rotation: rotates by the inverse angle, crops back to
// the original spatial bounds and reattaches the original coordinate metadata.
// Identity orientations pass the cube through unchanged
func Derotate(f *cube.Cube, o *Orientation) (*cube.Cube, error) {
	if o.Angle==0 {
		res:=f.Clone()
		res.Wcs=o.Wcs.Clone()
		return res, nil
	}
	res, err:=kernel.RotateSpatial(f, -o.Angle)
	if err!=nil { return nil, err }
	res, err=kernel.CropCenter(res, o.OrigNaxisn[0], o.OrigNaxisn[1])
	if err!=nil { return nil, err }
	res.Wcs=o.Wcs.Clone()
	return res, nil
}

// Resolves the map and scan position angles from parameters, falling back to
// the cube's orientation metadata for angles set to auto
func resolveAngles(f *cube.Cube, p *config.Params, c *ops.Context) (mapPA, scanPA float32) {
	if auto, _:=config.ParseAngle(p.MapPositionAngle); auto {
		if f.Wcs!=nil {
			mapPA=f.Wcs.Crota2
		} else {
			c.Warnf("%d: no orientation metadata for auto map position angle, assuming 0\n", f.ID)
		}
	} else {
		mapPA=config.AngleValue(p.MapPositionAngle)
	}
	if auto, _:=config.ParseAngle(p.ScanPositionAngle); auto {
		if f.Wcs!=nil {
			scanPA=f.Wcs.ScanPA
		} else {
			c.Warnf("%d: no orientation metadata for auto scan position angle, assuming 0\n", f.ID)
		}
	} else {
		scanPA=config.AngleValue(p.ScanPositionAngle)
	}
	return mapPA, scanPA
}

// Normalizes an angle in degrees into (-90, 90]
func normalizeAngle180(d float32) float32 {
	d=float32(math.Mod(float64(d), 180))
	if d>90 { d-=180 }
	if d<= -90 { d+=180 }
	return d
}

func axisName(axis int) string {
	if axis==0 { return "X" }
	return "Y"
}
