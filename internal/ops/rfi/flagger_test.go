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


package rfi

import (
	"io"
	"math"
	"testing"
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/ops"
)

func testContext() *ops.Context { return ops.NewContext(io.Discard) }

// Builds a receptor series of smooth spectra with a gently drifting
// high-frequency component, so the edginess profile has a usable nonzero
// noise estimate without any outliers
func makeCleanSeries(ntime, nchan int32) *ReceptorSeries {
	rs:=&ReceptorSeries{Name:"R00", NChan:nchan, NTime:ntime, Data:make([]float32, ntime*nchan)}
	for t:=int32(0); t<ntime; t++ {
		amp:=0.01*(1+0.1*math.Sin(2*math.Pi*float64(t)/50))
		for ch:=int32(0); ch<nchan; ch++ {
			alt:=float64(1)
			if ch%2==1 { alt= -1 }
			rs.Data[t*nchan+ch]=float32(0.1*math.Sin(2*math.Pi*float64(ch)/float64(nchan)) + amp*alt)
		}
	}
	return rs
}

func injectInterference(rs *ReceptorSeries, t int32) {
	for ch:=int32(0); ch<rs.NChan; ch++ {
		v:=float32(5)
		if ch%2==1 { v= -5 }
		rs.Data[t*rs.NChan+ch]=v
	}
}

func TestFlagReceptorDetectsInterference(t *testing.T) {
	rs:=makeCleanSeries(200, 64)
	injectInterference(rs, 100)

	p:=config.NewParams()
	p.Dilate=0
	res:=FlagReceptor(rs, p, testContext())
	if res.Skipped { t.Fatalf("flagging skipped: %s", res.Reason) }
	for i,r:=range res.Rejected {
		if r!=(i==100) { t.Errorf("spectrum %d rejected=%v; want %v", i, r, i==100) }
	}
	if res.NumRejected!=1 { t.Errorf("got %d rejections; want 1", res.NumRejected) }

	p.Dilate=1
	res=FlagReceptor(rs, p, testContext())
	for i,r:=range res.Rejected {
		want:=i>=99 && i<=101
		if r!=want { t.Errorf("spectrum %d rejected=%v; want %v with dilation", i, r, want) }
	}
	if res.NumRejected!=3 { t.Errorf("got %d rejections; want 3 with dilation", res.NumRejected) }
}

func TestFlagReceptorSkipsShortSeries(t *testing.T) {
	rs:=makeCleanSeries(20, 64)
	res:=FlagReceptor(rs, config.NewParams(), testContext())
	if !res.Skipped { t.Errorf("short series not skipped") }
	if res.NumRejected!=0 { t.Errorf("got %d rejections on a skipped receptor", res.NumRejected) }
}

func TestFlagReceptorBadReceptor(t *testing.T) {
	rs:=makeCleanSeries(60, 64)
	p:=config.NewParams()
	p.BadReceptors=[]string{"R00"}
	res:=FlagReceptor(rs, p, testContext())
	if res.NumRejected!=60 { t.Errorf("got %d rejections; want all 60", res.NumRejected) }
	for i,r:=range res.Rejected {
		if !r { t.Errorf("spectrum %d of a bad receptor not rejected", i) }
	}
}

func TestCorrectSteps(t *testing.T) {
	profile:=make([]float32, 200)
	for t2:=range profile {
		profile[t2]=1
		if t2>=100 { profile[t2]=3 }
	}
	corrected, applied:=correctSteps(profile)
	if !applied { t.Fatalf("level step not detected") }
	for i,v:=range corrected {
		if float32(math.Abs(float64(v-1)))>1e-4 { t.Errorf("corrected[%d]=%f; want 1", i, v) }
	}

	// too short to estimate a running median
	if _, applied:=correctSteps(make([]float32, 10)); applied {
		t.Errorf("step correction applied to a short profile")
	}
}

type dilateTestCase struct {
	Name string
	In   []bool
	N    int
	Want []bool
}

func TestDilateRuns(t *testing.T) {
	tcs:=[]dilateTestCase{
		{"none",   []bool{false,true,false,false}, 0, []bool{false,true,false,false}},
		{"single", []bool{false,true,false,false}, 1, []bool{true,true,true,false}},
		{"double", []bool{false,true,false,false}, 2, []bool{true,true,true,true}},
		{"atEdge", []bool{true,false,false},       1, []bool{true,true,false}},
	}
	for _,tc:=range tcs {
		got:=append([]bool(nil), tc.In...)
		dilateRuns(got, tc.N)
		for i,w:=range tc.Want {
			if got[i]!=w { t.Errorf("%s: position %d is %v; want %v", tc.Name, i, got[i], w) }
		}
	}
}

func TestApplyRejectMask(t *testing.T) {
	rs:=&ReceptorSeries{Name:"R00", NChan:4, NTime:3, Data:make([]float32, 12)}
	for i:=range rs.Data { rs.Data[i]=1 }
	ApplyRejectMask(rs, []bool{false, true, false})
	for ch:=int32(0); ch<4; ch++ {
		if !math.IsNaN(float64(rs.Data[1*4+ch])) { t.Errorf("channel %d of rejected spectrum not bad", ch) }
		if rs.Data[0*4+ch]!=1 || rs.Data[2*4+ch]!=1 { t.Errorf("channel %d of kept spectra modified", ch) }
	}
}

func TestSplitReceptors(t *testing.T) {
	f:=cube.NewCubeFromNaxisn([]int32{4,3,2}, nil)
	for i:=range f.Data { f.Data[i]=float32(i) }

	series, err:=SplitReceptors(f, []string{"H-POL"})
	if err!=nil { t.Fatalf("split: %s", err.Error()) }
	if len(series)!=2 { t.Fatalf("got %d series; want 2", len(series)) }
	if series[0].Name!="H-POL" { t.Errorf("got name %q; want H-POL", series[0].Name) }
	if series[1].Name!="R01" { t.Errorf("got name %q; want default R01", series[1].Name) }
	if series[1].NChan!=4 || series[1].NTime!=3 { t.Errorf("got %dx%d series; want 4x3", series[1].NChan, series[1].NTime) }
	if series[1].Data[0]!=12 { t.Errorf("second plane starts at %f; want 12", series[1].Data[0]) }

	// planes are referenced, not copied
	series[0].Data[0]=99
	if f.Data[0]!=99 { t.Errorf("series data not backed by the cube") }

	if _, err:=SplitReceptors(cube.NewCubeFromNaxisn([]int32{4,3}, nil), nil); err==nil {
		t.Errorf("splitting a 2-axis array did not fail")
	}
}

func TestOpFlagApply(t *testing.T) {
	nchan, ntime, nrec:=int32(64), int32(200), int32(2)
	f:=cube.NewCubeFromNaxisn([]int32{nchan, ntime, nrec}, nil)
	for r:=int32(0); r<nrec; r++ {
		rs:=makeCleanSeries(ntime, nchan)
		copy(f.Data[r*nchan*ntime:(r+1)*nchan*ntime], rs.Data)
	}
	plane:=nchan*ntime
	for ch:=int32(0); ch<nchan; ch++ { // interference in receptor 1 at time 50
		v:=float32(5)
		if ch%2==1 { v= -5 }
		f.Data[plane+50*nchan+ch]=v
	}

	p:=config.NewParams()
	p.Dilate=0
	op:=NewOpFlag(p, nil)
	res, err:=op.Apply(f, testContext())
	if err!=nil { t.Fatalf("flag: %s", err.Error()) }

	if !math.IsNaN(float64(res.Data[plane+50*nchan])) { t.Errorf("interference spectrum not stamped bad") }
	if math.IsNaN(float64(res.Data[50*nchan])) { t.Errorf("clean receptor stamped bad") }
	if math.IsNaN(float64(f.Data[plane+50*nchan+2])) { t.Errorf("input cube modified") }
}
