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
	"fmt"
	"math"
	"github.com/mlnoga/swclean/internal/cube"
)

// Rotates the two spatial axes of a cube by the given angle in degrees about the
// spatial center, leaving the spectral axis untouched. The output canvas is grown
// to the rotated bounding box; pixels with no source data become bad. Resampling
// is bilinear with bad-value rejection. Coordinate metadata is not preserved;
// callers must reattach it. Accepts 2-axis planes and 3-axis cubes
func RotateSpatial(c *cube.Cube, angleDeg float32) (*cube.Cube, error) {
	nx, ny:=c.Naxisn[0], c.Naxisn[1]
	nc:=int32(1)
	switch len(c.Naxisn) {
	case 2:
	case 3:
		nc=c.Naxisn[2]
	default:
		return nil, fmt.Errorf("cannot rotate %s array spatially", c.DimensionsToString())
	}

	rad:=float64(angleDeg)*math.Pi/180
	cos, sin:=float32(math.Cos(rad)), float32(math.Sin(rad))
	absCos, absSin:=float32(math.Abs(float64(cos))), float32(math.Abs(float64(sin)))

	nxr:=int32(float32(nx)*absCos + float32(ny)*absSin + 0.5)
	nyr:=int32(float32(nx)*absSin + float32(ny)*absCos + 0.5)
	if nxr<1 { nxr=1 }
	if nyr<1 { nyr=1 }

	naxisn:=[]int32{nxr, nyr}
	if len(c.Naxisn)==3 { naxisn=append(naxisn, nc) }
	res:=cube.NewCubeFromNaxisn(naxisn, nil)
	res.ID, res.FileName=c.ID, c.FileName

	cx,  cy :=float32(nx -1)*0.5, float32(ny -1)*0.5
	cxr, cyr:=float32(nxr-1)*0.5, float32(nyr-1)*0.5
	nan:=float32(math.NaN())

	for ch:=int32(0); ch<nc; ch++ {
		src :=c.Data  [ch*nx*ny   : (ch+1)*nx*ny]
		dest:=res.Data[ch*nxr*nyr : (ch+1)*nxr*nyr]
		for yr:=int32(0); yr<nyr; yr++ {
			dy:=float32(yr)-cyr
			for xr:=int32(0); xr<nxr; xr++ {
				dx:=float32(xr)-cxr
				// inverse mapping into the source plane
				xs:=cx + dx*cos + dy*sin
				ys:=cy - dx*sin + dy*cos
				dest[yr*nxr+xr]=bilinear(src, nx, ny, xs, ys, nan)
			}
		}
	}
	return res, nil
}

// Bilinear interpolation at (xs,ys) rejecting bad and out-of-bounds neighbors.
// Returns bad if less than half the interpolation weight is backed by good data
func bilinear(src []float32, nx, ny int32, xs, ys, nan float32) float32 {
	x0:=int32(math.Floor(float64(xs)))
	y0:=int32(math.Floor(float64(ys)))
	fx:=xs-float32(x0)
	fy:=ys-float32(y0)

	sum, weightSum:=float32(0), float32(0)
	for dy:=int32(0); dy<2; dy++ {
		y:=y0+dy
		if y<0 || y>=ny { continue }
		wy:=fy
		if dy==0 { wy=1-fy }
		for dx:=int32(0); dx<2; dx++ {
			x:=x0+dx
			if x<0 || x>=nx { continue }
			v:=src[y*nx+x]
			if math.IsNaN(float64(v)) { continue }
			wx:=fx
			if dx==0 { wx=1-fx }
			sum+=v*wx*wy
			weightSum+=wx*wy
		}
	}
	if weightSum<0.5 { return nan }
	return sum/weightSum
}

// Trims a rotated cube back to the minimal spatial bounding box containing good
// data in any channel. Metadata is not preserved
func TrimToValid(c *cube.Cube) (*cube.Cube, error) {
	nx, ny:=c.Naxisn[0], c.Naxisn[1]
	nc:=int32(1)
	if len(c.Naxisn)==3 { nc=c.Naxisn[2] }

	minX, minY, maxX, maxY:=nx, ny, int32(-1), int32(-1)
	for ch:=int32(0); ch<nc; ch++ {
		plane:=c.Data[ch*nx*ny : (ch+1)*nx*ny]
		for y:=int32(0); y<ny; y++ {
			for x:=int32(0); x<nx; x++ {
				if !math.IsNaN(float64(plane[y*nx+x])) {
					if x<minX { minX=x }
					if y<minY { minY=y }
					if x>maxX { maxX=x }
					if y>maxY { maxY=y }
				}
			}
		}
	}
	if maxX<0 { return nil, fmt.Errorf("cannot trim %s array without any good values", c.DimensionsToString()) }
	return cropRect(c, minX, minY, maxX+1, maxY+1), nil
}

// Crops a cube spatially to the centered box of the given dimensions.
// Metadata is not preserved
func CropCenter(c *cube.Cube, nx2, ny2 int32) (*cube.Cube, error) {
	nx, ny:=c.Naxisn[0], c.Naxisn[1]
	if nx2>nx || ny2>ny { return nil, fmt.Errorf("cannot crop %s array to %dx%d", c.DimensionsToString(), nx2, ny2) }
	x0:=(nx-nx2)/2
	y0:=(ny-ny2)/2
	return cropRect(c, x0, y0, x0+nx2, y0+ny2), nil
}

func cropRect(c *cube.Cube, x0, y0, x1, y1 int32) *cube.Cube {
	nx, ny:=c.Naxisn[0], c.Naxisn[1]
	nc:=int32(1)
	nx2, ny2:=x1-x0, y1-y0
	naxisn:=[]int32{nx2, ny2}
	if len(c.Naxisn)==3 {
		nc=c.Naxisn[2]
		naxisn=append(naxisn, nc)
	}
	res:=cube.NewCubeFromNaxisn(naxisn, nil)
	res.ID, res.FileName=c.ID, c.FileName
	for ch:=int32(0); ch<nc; ch++ {
		for y:=int32(0); y<ny2; y++ {
			srcOff :=(ch*ny+y+y0)*nx + x0
			destOff:=(ch*ny2+y)*nx2
			copy(res.Data[destOff:destOff+nx2], c.Data[srcOff:srcOff+nx2])
		}
	}
	return res
}
