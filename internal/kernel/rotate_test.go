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
	"testing"
	"github.com/mlnoga/swclean/internal/cube"
)

func TestRotateSpatialIdentity(t *testing.T) {
	c:=cube.NewCubeFromNaxisn([]int32{4,3,2}, nil)
	for i:=range c.Data { c.Data[i]=float32(i) }

	res, err:=RotateSpatial(c, 0)
	if err!=nil { t.Fatalf("rotate: %s", err.Error()) }
	if !cube.EqualInt32Slice(res.Naxisn, c.Naxisn) { t.Fatalf("got dimensions %v; want %v", res.Naxisn, c.Naxisn) }
	for i,v:=range res.Data {
		if v!=c.Data[i] { t.Errorf("data[%d]=%f; want %f", i, v, c.Data[i]) }
	}
}

func TestRotateSpatial90(t *testing.T) {
	nx, ny:=int32(4), int32(3)
	c:=cube.NewCubeFromNaxisn([]int32{nx,ny}, nil)
	for y:=int32(0); y<ny; y++ {
		for x:=int32(0); x<nx; x++ {
			c.Data[y*nx+x]=float32(x)+10*float32(y)
		}
	}

	res, err:=RotateSpatial(c, 90)
	if err!=nil { t.Fatalf("rotate: %s", err.Error()) }
	if res.Naxisn[0]!=ny || res.Naxisn[1]!=nx { t.Fatalf("got dimensions %v; want [%d %d]", res.Naxisn, ny, nx) }

	// a 90 degree turn maps destination (xr,yr) onto integral source positions
	cx,  cy :=float64(nx-1)*0.5, float64(ny-1)*0.5
	cxr, cyr:=float64(res.Naxisn[0]-1)*0.5, float64(res.Naxisn[1]-1)*0.5
	for yr:=int32(0); yr<res.Naxisn[1]; yr++ {
		for xr:=int32(0); xr<res.Naxisn[0]; xr++ {
			xs:=int32(math.Round(cx+float64(yr)-cyr))
			ys:=int32(math.Round(cy-(float64(xr)-cxr)))
			want:=c.Data[ys*nx+xs]
			got:=res.Data[yr*res.Naxisn[0]+xr]
			if float32(math.Abs(float64(got-want)))>1e-4 {
				t.Errorf("rotated[%d,%d]=%f; want %f", xr, yr, got, want)
			}
		}
	}
}

// Rotating by an angle and back composes into a pure translation of the
// spatial center. On a linear gradient bilinear resampling is exact, so
// interior values must match the analytic field
func TestRotateSpatialRoundTrip(t *testing.T) {
	nx, ny:=int32(21), int32(17)
	c:=cube.NewCubeFromNaxisn([]int32{nx,ny}, nil)
	for y:=int32(0); y<ny; y++ {
		for x:=int32(0); x<nx; x++ {
			c.Data[y*nx+x]=float32(x)+2*float32(y)
		}
	}

	rot, err:=RotateSpatial(c, 30)
	if err!=nil { t.Fatalf("rotate: %s", err.Error()) }
	res, err:=RotateSpatial(rot, -30)
	if err!=nil { t.Fatalf("derotate: %s", err.Error()) }

	nx2, ny2:=res.Naxisn[0], res.Naxisn[1]
	offX:=float64(nx2-1)*0.5 - float64(nx-1)*0.5
	offY:=float64(ny2-1)*0.5 - float64(ny-1)*0.5
	checked:=0
	for yr:=int32(0); yr<ny2; yr++ {
		for xr:=int32(0); xr<nx2; xr++ {
			xs:=float64(xr)-offX
			ys:=float64(yr)-offY
			if xs<4 || xs>float64(nx-1)-4 || ys<4 || ys>float64(ny-1)-4 { continue }
			want:=float32(xs+2*ys)
			got:=res.Data[yr*nx2+xr]
			if math.IsNaN(float64(got)) || float32(math.Abs(float64(got-want)))>1e-2 {
				t.Errorf("round trip [%d,%d]=%f; want %f", xr, yr, got, want)
			}
			checked++
		}
	}
	if checked==0 { t.Errorf("no interior pixels checked") }
}

func TestTrimToValid(t *testing.T) {
	nan:=nanf()
	c:=cube.NewCubeFromNaxisn([]int32{5,4}, []float32{
		nan, nan, nan, nan, nan,
		nan, 1,   2,   3,   nan,
		nan, 4,   5,   6,   nan,
		nan, nan, nan, nan, nan,
	})
	res, err:=TrimToValid(c)
	if err!=nil { t.Fatalf("trim: %s", err.Error()) }
	if !cube.EqualInt32Slice(res.Naxisn, []int32{3,2}) { t.Fatalf("got dimensions %v; want [3 2]", res.Naxisn) }
	want:=[]float32{1,2,3,4,5,6}
	for i,w:=range want {
		if res.Data[i]!=w { t.Errorf("data[%d]=%f; want %f", i, res.Data[i], w) }
	}

	allBad:=cube.NewCubeFromNaxisn([]int32{2,2}, []float32{nan,nan,nan,nan})
	if _, err:=TrimToValid(allBad); err==nil { t.Errorf("trimming an all-bad array did not fail") }
}

func TestCropCenter(t *testing.T) {
	c:=cube.NewCubeFromNaxisn([]int32{5,5}, nil)
	for i:=range c.Data { c.Data[i]=float32(i) }
	res, err:=CropCenter(c, 3, 3)
	if err!=nil { t.Fatalf("crop: %s", err.Error()) }
	if !cube.EqualInt32Slice(res.Naxisn, []int32{3,3}) { t.Fatalf("got dimensions %v; want [3 3]", res.Naxisn) }
	want:=[]float32{6,7,8, 11,12,13, 16,17,18}
	for i,w:=range want {
		if res.Data[i]!=w { t.Errorf("data[%d]=%f; want %f", i, res.Data[i], w) }
	}

	if _, err:=CropCenter(c, 7, 3); err==nil { t.Errorf("cropping beyond bounds did not fail") }
}
