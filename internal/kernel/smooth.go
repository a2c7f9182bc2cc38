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


package kernel

import (
	"math"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/qsort"
)

// Forces a smoothing window width to be odd and at least 3
func OddWidth(width int) int {
	if width<3 { return 3 }
	if width%2==0 { return width+1 }
	return width
}

// Box-smooths a 1D series with the given window width, ignoring bad values.
// The window shrinks at the edges. Width is forced odd and >=3. Returns a new array
func BoxSmooth1D(data []float32, width int) []float32 {
	width=OddWidth(width)
	half:=width/2
	res:=make([]float32, len(data))
	nan:=float32(math.NaN())
	for i:=range data {
		lo, hi:=i-half, i+half
		if lo<0 { lo=0 }
		if hi>len(data)-1 { hi=len(data)-1 }
		sum, numGood:=float64(0), 0
		for j:=lo; j<=hi; j++ {
			if !math.IsNaN(float64(data[j])) {
				sum+=float64(data[j])
				numGood++
			}
		}
		if numGood==0 {
			res[i]=nan
		} else {
			res[i]=float32(sum/float64(numGood))
		}
	}
	return res
}

// Median-smooths a 1D series with the given window width, ignoring bad values.
// Used for background estimation, where a running median rejects outliers
// that a box mean would smear. Returns a new array
func MedianSmooth1D(data []float32, width int) []float32 {
	width=OddWidth(width)
	half:=width/2
	res:=make([]float32, len(data))
	buf:=make([]float32, width)
	nan:=float32(math.NaN())
	for i:=range data {
		lo, hi:=i-half, i+half
		if lo<0 { lo=0 }
		if hi>len(data)-1 { hi=len(data)-1 }
		numGood:=0
		for j:=lo; j<=hi; j++ {
			if !math.IsNaN(float64(data[j])) {
				buf[numGood]=data[j]
				numGood++
			}
		}
		if numGood==0 {
			res[i]=nan
		} else {
			res[i]=qsort.QSelectMedianFloat32(buf[:numGood])
		}
	}
	return res
}

// Box-smooths a 2-axis profile along its spectral (second) axis with the given
// window width, ignoring bad values. Returns a new profile
func BoxSmoothSpectral(p *cube.Cube, width int) *cube.Cube {
	nRow, nc:=p.Naxisn[0], p.Naxisn[1]
	res:=cube.NewCubeFromCube(p)
	line:=make([]float32, nc)
	for row:=int32(0); row<nRow; row++ {
		for ch:=int32(0); ch<nc; ch++ {
			line[ch]=p.Data[ch*nRow+row]
		}
		smoothed:=BoxSmooth1D(line, width)
		for ch:=int32(0); ch<nc; ch++ {
			res.Data[ch*nRow+row]=smoothed[ch]
		}
	}
	return res
}

// Returns a 1D Gaussian kernel with given sigma, normalized to sum 1.
// Kernel size is the next odd number from 4x sigma
func GaussianKernel1D(sigma float32) []float32 {
	size:=int(4*sigma)
	if size%2==0 { size++ }
	if size<3 { size=3 }
	kernel:=make([]float32, size)
	half:=size/2
	sum:=float32(0)
	for i:=range kernel {
		x:=float32(i-half)/sigma
		kernel[i]=float32(math.Exp(float64(-0.5*x*x)))
		sum+=kernel[i]
	}
	for i:=range kernel {
		kernel[i]/=sum
	}
	return kernel
}

// Gaussian-smooths a 3-axis cube along its spectral axis, ignoring bad values by
// renormalizing the kernel over the good samples. Returns a new cube; the input
// cube's metadata is carried over unchanged as the shape does not change
func GaussianSmoothSpectral(c *cube.Cube, sigma float32) *cube.Cube {
	nx, ny, nc:=c.Naxisn[0], c.Naxisn[1], c.Naxisn[2]
	kernel:=GaussianKernel1D(sigma)
	half:=int32(len(kernel)/2)

	res:=cube.NewCubeFromCube(c)
	nan:=float32(math.NaN())
	for y:=int32(0); y<ny; y++ {
		for x:=int32(0); x<nx; x++ {
			for ch:=int32(0); ch<nc; ch++ {
				sum, weightSum:=float32(0), float32(0)
				for k:=-half; k<=half; k++ {
					ch2:=ch+k
					if ch2<0 || ch2>=nc { continue }
					v:=c.Data[(ch2*ny+y)*nx+x]
					if math.IsNaN(float64(v)) { continue }
					w:=kernel[k+half]
					sum+=v*w
					weightSum+=w
				}
				if weightSum<=0 {
					res.Data[(ch*ny+y)*nx+x]=nan
				} else {
					res.Data[(ch*ny+y)*nx+x]=sum/weightSum
				}
			}
		}
	}
	return res
}
