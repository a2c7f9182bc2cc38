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

func nanf() float32 { return float32(math.NaN()) }

func TestThreshold(t *testing.T) {
	mask:=Threshold([]float32{0.1, 0.5, 0.9, nanf()}, 0.5)
	wantBad:=[]bool{false, true, true, true}
	for i,bad:=range wantBad {
		isBad:=math.IsNaN(float64(mask[i]))
		if isBad!=bad { t.Errorf("mask[%d] bad=%v; want %v", i, isBad, bad) }
		if !bad && mask[i]!=0 { t.Errorf("mask[%d]=%f; want 0", i, mask[i]) }
	}
}

func TestCollapseMedian(t *testing.T) {
	// 3x2x2 cube: X=3, Y=2, 2 channels
	c:=cube.NewCubeFromNaxisn([]int32{3,2,2}, []float32{
		1, 2, 3, // ch 0, y 0
		5, 4, 9, // ch 0, y 1
		0, 0, 0, // ch 1, y 0
		2, nanf(), 6, // ch 1, y 1
	})

	// collapse along Y: median over y for each (x,ch)
	p, err:=CollapseMedian(c, 1)
	if err!=nil { t.Fatalf("collapse: %s", err.Error()) }
	if p.Naxisn[0]!=3 || p.Naxisn[1]!=2 { t.Fatalf("got profile dimensions %v; want [3 2]", p.Naxisn) }
	want:=[]float32{5, 4, 9, 2, 0, 6} // even-count median selects the upper middle
	for i,w:=range want {
		if got:=p.Data[i]; float32(math.Abs(float64(got-w)))>1e-6 {
			t.Errorf("profile[%d]=%f; want %f", i, got, w)
		}
	}

	// collapse along X: median over x for each (y,ch)
	p, err=CollapseMedian(c, 0)
	if err!=nil { t.Fatalf("collapse: %s", err.Error()) }
	if p.Naxisn[0]!=2 || p.Naxisn[1]!=2 { t.Fatalf("got profile dimensions %v; want [2 2]", p.Naxisn) }
	want=[]float32{2, 5, 0, 6}
	for i,w:=range want {
		if got:=p.Data[i]; float32(math.Abs(float64(got-w)))>1e-6 {
			t.Errorf("profile[%d]=%f; want %f", i, got, w)
		}
	}

	if _, err:=CollapseMedian(cube.NewCubeFromNaxisn([]int32{3,2}, nil), 0); err==nil {
		t.Errorf("collapsing a 2-axis array did not fail")
	}
}

func TestCollapseMedianAllBad(t *testing.T) {
	c:=cube.NewCubeFromNaxisn([]int32{2,2,1}, []float32{nanf(), 1, nanf(), 3})
	p, err:=CollapseMedian(c, 1)
	if err!=nil { t.Fatalf("collapse: %s", err.Error()) }
	if !math.IsNaN(float64(p.Data[0])) { t.Errorf("all-bad position got %f; want NaN", p.Data[0]) }
	if p.Data[1]!=3 { t.Errorf("got %f; want 3", p.Data[1]) }
}

func TestGrowAxisRoundTrip(t *testing.T) {
	c:=cube.NewCubeFromNaxisn([]int32{3,2,2}, []float32{1,2,3, 1,2,3, 4,5,6, 4,5,6})
	p, err:=CollapseMedian(c, 1)
	if err!=nil { t.Fatalf("collapse: %s", err.Error()) }
	grown, err:=GrowAxis(p, 1, 2)
	if err!=nil { t.Fatalf("grow: %s", err.Error()) }
	if !cube.EqualInt32Slice(grown.Naxisn, c.Naxisn) { t.Fatalf("got dimensions %v; want %v", grown.Naxisn, c.Naxisn) }
	for i,v:=range grown.Data {
		if v!=c.Data[i] { t.Errorf("data[%d]=%f; want %f", i, v, c.Data[i]) }
	}
}

func TestGrowSpectral(t *testing.T) {
	m:=cube.NewCubeFromNaxisn([]int32{2,2}, []float32{0, nanf(), 0, 0})
	c, err:=GrowSpectral(m, 3)
	if err!=nil { t.Fatalf("grow: %s", err.Error()) }
	if !cube.EqualInt32Slice(c.Naxisn, []int32{2,2,3}) { t.Fatalf("got dimensions %v; want [2 2 3]", c.Naxisn) }
	for ch:=0; ch<3; ch++ {
		if !math.IsNaN(float64(c.Data[ch*4+1])) { t.Errorf("ch=%d masked pixel not bad", ch) }
		if c.Data[ch*4]!=0 { t.Errorf("ch=%d unmasked pixel is %f; want 0", ch, c.Data[ch*4]) }
	}
}

type oddWidthTestCase struct {
	Width int
	Want  int
}

func TestOddWidth(t *testing.T) {
	tcs:=[]oddWidthTestCase{
		{0, 3}, {1, 3}, {2, 3}, {3, 3}, {4, 5}, {5, 5}, {50, 51}, {51, 51},
	}
	for _,tc:=range tcs {
		if got:=OddWidth(tc.Width); got!=tc.Want {
			t.Errorf("OddWidth(%d)=%d; want %d", tc.Width, got, tc.Want)
		}
	}
}

func TestBoxSmooth1D(t *testing.T) {
	data:=[]float32{1, 1, 1, 10, 1, 1, 1}
	res:=BoxSmooth1D(data, 3)
	want:=[]float32{1, 1, 4, 4, 4, 1, 1}
	for i,w:=range want {
		if float32(math.Abs(float64(res[i]-w)))>1e-6 { t.Errorf("res[%d]=%f; want %f", i, res[i], w) }
	}

	// bad values are skipped, not propagated
	data=[]float32{1, nanf(), 3}
	res=BoxSmooth1D(data, 3)
	if float32(math.Abs(float64(res[1]-2)))>1e-6 { t.Errorf("res[1]=%f; want 2", res[1]) }
}

func TestMedianSmooth1DRejectsOutliers(t *testing.T) {
	data:=[]float32{1, 1, 100, 1, 1}
	res:=MedianSmooth1D(data, 3)
	for i:=1; i<4; i++ {
		if res[i]!=1 { t.Errorf("res[%d]=%f; want 1", i, res[i]) }
	}
}
