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


package cube

import (
	"fmt"
	"math"
	"strings"
	"github.com/mlnoga/swclean/internal/stats"
)

// A position-position-velocity spectral data cube, or a lower-dimensional slice of one.
// Axis order is X (fastest varying), Y, then spectral channel; a scan-row profile is the
// same type with two axes, position along the row first. Bad values are IEEE NaN.
type Cube struct {
	ID       int         // Sequential ID number, for log output. Counted upwards from 0 for science cubes
	FileName string      // Original file name, if any, for log output

	Naxisn []int32       // Axis dimensions. Most quickly varying dimension first (i.e. X,Y,channel)
	Pixels int32         // Number of voxels in the cube. Product of Naxisn[]

	Data     []float32   // The intensity data
	Variance []float32   // Optional per-voxel variance, nil if absent

	Wcs *Wcs             // Pixel-to-world coordinate mapping. Nil after shape-changing
	                     // operations, which do not preserve metadata; callers must reattach

	Stats *stats.Stats   // Basic statistics: min, mean, max, robust location and scale
}

// Creates a cube with given axis dimensions. Data is not copied, allocated if nil.
// naxisn is deep copied
func NewCubeFromNaxisn(naxisn []int32, data []float32) *Cube {
	numPixels:=int32(1)
	for _,naxis:=range naxisn {
		numPixels*=naxis
	}
	if data==nil {
		data=make([]float32, numPixels)
	}
	return &Cube{
		Naxisn: append([]int32(nil), naxisn...), // clone slice
		Pixels: numPixels,
		Data:   data,
	}
}

// Creates a cube shaped like the given cube, carrying over identity and metadata.
// A new data array is allocated
func NewCubeFromCube(c *Cube) *Cube {
	res:=NewCubeFromNaxisn(c.Naxisn, nil)
	res.ID, res.FileName=c.ID, c.FileName
	res.Wcs=c.Wcs.Clone()
	return res
}

// Returns a deep copy of the cube, including its data and variance arrays
func (c *Cube) Clone() *Cube {
	res:=NewCubeFromCube(c)
	copy(res.Data, c.Data)
	if c.Variance!=nil {
		res.Variance=append([]float32(nil), c.Variance...)
	}
	return res
}

func (c *Cube) DimensionsToString() string {
	b:=strings.Builder{}
	for i,naxis:=range c.Naxisn {
		if i>0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Calculates and caches basic statistics for the cube data
func (c *Cube) CalcStats() *stats.Stats {
	if c.Stats==nil { c.Stats=stats.CalcStats(c.Data) }
	return c.Stats
}

// Returns the number of good (non-NaN) values in the cube
func (c *Cube) NumGood() (n int) {
	for _,v:=range c.Data {
		if !math.IsNaN(float64(v)) { n++ }
	}
	return n
}

// Subtracts the other cube voxel-for-voxel, returning a new cube.
// Both cubes must have identical dimensions
func (c *Cube) Subtract(other *Cube) (*Cube, error) {
	if !EqualInt32Slice(c.Naxisn, other.Naxisn) {
		return nil, fmt.Errorf("cannot subtract %s cube from %s cube", other.DimensionsToString(), c.DimensionsToString())
	}
	res:=NewCubeFromCube(c)
	for i,v:=range c.Data {
		res.Data[i]=v-other.Data[i]
	}
	if c.Variance!=nil {
		res.Variance=append([]float32(nil), c.Variance...)
	}
	return res, nil
}

// Applies a mask by addition, returning a new cube: voxels where the mask is zero are
// unchanged, voxels where the mask is NaN become NaN. The mask may have fewer axes than
// the cube, in which case it is broadcast across the remaining trailing axes
func (c *Cube) ApplyMask(mask *Cube) (*Cube, error) {
	if len(mask.Naxisn)>len(c.Naxisn) || !EqualInt32Slice(mask.Naxisn, c.Naxisn[:len(mask.Naxisn)]) {
		return nil, fmt.Errorf("cannot apply %s mask to %s cube", mask.DimensionsToString(), c.DimensionsToString())
	}
	res:=NewCubeFromCube(c)
	mlen:=len(mask.Data)
	for i,v:=range c.Data {
		res.Data[i]=v+mask.Data[i%mlen]
	}
	return res, nil
}

// Equal tells whether a and b contain the same elements.
// A nil argument is equivalent to an empty slice.
func EqualInt32Slice(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
