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


// Package kernel provides the primitive n-dimensional array operations the
// standing-wave pipeline is built from: thresholding, bad-value-aware axis
// collapse and replication, box and Gaussian smoothing, spatial rotation,
// relaxation gap filling and clump detection. All operations treat IEEE NaN
// as the bad-value marker, return fresh arrays, and never mutate their inputs.
// Shape-changing operations do not preserve coordinate metadata; callers must
// reattach it.
package kernel

import (
	"fmt"
	"math"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/qsort"
)

// Returns a mask congruent with the data: zero where the value is below the
// threshold, NaN where it is at or above, or is itself NaN
func Threshold(data []float32, thresh float32) []float32 {
	nan:=float32(math.NaN())
	mask:=make([]float32, len(data))
	for i,v:=range data {
		if v>=thresh || math.IsNaN(float64(v)) {
			mask[i]=nan
		}
	}
	return mask
}

// Collapses a 3-axis cube along the given spatial axis (0=X, 1=Y) with the median
// estimator, ignoring bad values, producing a 2-axis profile of position along the
// remaining spatial axis by spectral channel. Positions with no good values stay bad
func CollapseMedian(c *cube.Cube, axis int) (*cube.Cube, error) {
	if len(c.Naxisn)!=3 { return nil, fmt.Errorf("cannot collapse %s cube along spatial axis", c.DimensionsToString()) }
	if axis!=0 && axis!=1 { return nil, fmt.Errorf("cannot collapse along axis %d", axis) }
	nx, ny, nc:=c.Naxisn[0], c.Naxisn[1], c.Naxisn[2]

	nRow:=nx
	nCollapse:=ny
	if axis==0 { nRow, nCollapse=ny, nx }

	p:=cube.NewCubeFromNaxisn([]int32{nRow, nc}, nil)
	p.ID, p.FileName=c.ID, c.FileName
	nan:=float32(math.NaN())
	buf:=make([]float32, nCollapse)

	for ch:=int32(0); ch<nc; ch++ {
		for row:=int32(0); row<nRow; row++ {
			numGood:=0
			for k:=int32(0); k<nCollapse; k++ {
				var v float32
				if axis==1 {
					v=c.Data[(ch*ny+k)*nx+row]
				} else {
					v=c.Data[(ch*ny+row)*nx+k]
				}
				if !math.IsNaN(float64(v)) {
					buf[numGood]=v
					numGood++
				}
			}
			if numGood==0 {
				p.Data[ch*nRow+row]=nan
			} else {
				p.Data[ch*nRow+row]=qsort.QSelectMedianFloat32(buf[:numGood])
			}
		}
	}
	return p, nil
}

// Collapses a 3-axis cube along its spectral axis with the mean estimator, ignoring
// bad values, producing a 2D moment map. Pixels with no good values stay bad
func CollapseMeanSpectral(c *cube.Cube) (*cube.Cube, error) {
	if len(c.Naxisn)!=3 { return nil, fmt.Errorf("cannot collapse %s cube along spectral axis", c.DimensionsToString()) }
	nx, ny, nc:=c.Naxisn[0], c.Naxisn[1], c.Naxisn[2]

	m:=cube.NewCubeFromNaxisn([]int32{nx, ny}, nil)
	m.ID, m.FileName=c.ID, c.FileName
	nan:=float32(math.NaN())

	for y:=int32(0); y<ny; y++ {
		for x:=int32(0); x<nx; x++ {
			sum, numGood:=float64(0), 0
			for ch:=int32(0); ch<nc; ch++ {
				v:=c.Data[(ch*ny+y)*nx+x]
				if !math.IsNaN(float64(v)) {
					sum+=float64(v)
					numGood++
				}
			}
			if numGood==0 {
				m.Data[y*nx+x]=nan
			} else {
				m.Data[y*nx+x]=float32(sum/float64(numGood))
			}
		}
	}
	return m, nil
}

// Grows a 2-axis profile back into a 3-axis cube by replicating it along the
// previously collapsed spatial axis (0=X, 1=Y): every position along that axis
// receives an identical copy of the row profile. Metadata is not preserved
func GrowAxis(p *cube.Cube, axis int, n int32) (*cube.Cube, error) {
	if len(p.Naxisn)!=2 { return nil, fmt.Errorf("cannot grow %s profile", p.DimensionsToString()) }
	if axis!=0 && axis!=1 { return nil, fmt.Errorf("cannot grow along axis %d", axis) }
	nRow, nc:=p.Naxisn[0], p.Naxisn[1]

	var c *cube.Cube
	if axis==1 {
		nx, ny:=nRow, n
		c=cube.NewCubeFromNaxisn([]int32{nx, ny, nc}, nil)
		for ch:=int32(0); ch<nc; ch++ {
			for y:=int32(0); y<ny; y++ {
				copy(c.Data[(ch*ny+y)*nx:(ch*ny+y+1)*nx], p.Data[ch*nRow:(ch+1)*nRow])
			}
		}
	} else {
		nx, ny:=n, nRow
		c=cube.NewCubeFromNaxisn([]int32{nx, ny, nc}, nil)
		for ch:=int32(0); ch<nc; ch++ {
			for y:=int32(0); y<ny; y++ {
				v:=p.Data[ch*nRow+y]
				row:=c.Data[(ch*ny+y)*nx:(ch*ny+y+1)*nx]
				for x:=range row { row[x]=v }
			}
		}
	}
	c.ID, c.FileName=p.ID, p.FileName
	return c, nil
}

// Grows a 2D spatial mask into a 3-axis mask by replicating it across the
// spectral axis. Metadata is not preserved
func GrowSpectral(m *cube.Cube, nc int32) (*cube.Cube, error) {
	if len(m.Naxisn)!=2 { return nil, fmt.Errorf("cannot grow %s mask spectrally", m.DimensionsToString()) }
	nx, ny:=m.Naxisn[0], m.Naxisn[1]
	c:=cube.NewCubeFromNaxisn([]int32{nx, ny, nc}, nil)
	c.ID, c.FileName=m.ID, m.FileName
	plane:=nx*ny
	for ch:=int32(0); ch<nc; ch++ {
		copy(c.Data[ch*plane:(ch+1)*plane], m.Data)
	}
	return c, nil
}
