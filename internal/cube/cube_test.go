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
	"bytes"
	"math"
	"testing"
)

func TestSubtract(t *testing.T) {
	a:=NewCubeFromNaxisn([]int32{2,2,2}, []float32{1,2,3,4,5,6,7,8})
	b:=NewCubeFromNaxisn([]int32{2,2,2}, []float32{1,1,1,1,1,1,1,1})
	res, err:=a.Subtract(b)
	if err!=nil { t.Fatalf("subtract: %s", err.Error()) }
	for i,v:=range res.Data {
		want:=a.Data[i]-1
		if v!=want { t.Errorf("data[%d]=%f; want %f", i, v, want) }
	}

	c:=NewCubeFromNaxisn([]int32{2,2}, nil)
	if _, err:=a.Subtract(c); err==nil { t.Errorf("subtracting mismatched dimensions did not fail") }
}

func TestApplyMaskBroadcast(t *testing.T) {
	nan:=float32(math.NaN())
	c:=NewCubeFromNaxisn([]int32{2,2,2}, []float32{1,2,3,4,5,6,7,8})
	mask:=NewCubeFromNaxisn([]int32{2,2}, []float32{0,nan,0,0})

	res, err:=c.ApplyMask(mask)
	if err!=nil { t.Fatalf("apply mask: %s", err.Error()) }
	for ch:=int32(0); ch<2; ch++ {
		for i:=int32(0); i<4; i++ {
			v:=res.Data[ch*4+i]
			if i==1 {
				if !math.IsNaN(float64(v)) { t.Errorf("ch=%d i=%d got %f; want NaN", ch, i, v) }
			} else if v!=c.Data[ch*4+i] {
				t.Errorf("ch=%d i=%d got %f; want %f", ch, i, v, c.Data[ch*4+i])
			}
		}
	}

	bad:=NewCubeFromNaxisn([]int32{3,2}, nil)
	if _, err:=c.ApplyMask(bad); err==nil { t.Errorf("applying mismatched mask did not fail") }
}

func TestWcsChannelWorldRoundTrip(t *testing.T) {
	w:=&Wcs{Crpix:[3]float32{1,1,33}, Crval:[3]float32{0,0,-12.5}, Cdelt:[3]float32{1,1,0.25}}
	for ch:=int32(0); ch<64; ch++ {
		world:=w.ChannelToWorld(ch)
		if got:=w.WorldToChannel(world); got!=ch {
			t.Errorf("channel %d world %f maps back to %d", ch, world, got)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	nan:=float32(math.NaN())
	c:=NewCubeFromNaxisn([]int32{3,2,4}, nil)
	for i:=range c.Data { c.Data[i]=float32(i)*0.5-3 }
	c.Data[5]=nan
	c.Wcs=&Wcs{
		Crpix: [3]float32{1,1,2},
		Crval: [3]float32{83.5,-5.25,10},
		Cdelt: [3]float32{-0.01,0.01,0.5},
		Ctype: [3]string{"RA---GLS","DEC--GLS","VELO-LSR"},
		Crota2: 12.5,
		ScanPA: 45,
	}

	buf:=&bytes.Buffer{}
	if err:=c.Write(buf); err!=nil { t.Fatalf("write: %s", err.Error()) }
	if buf.Len()%2880!=0 { t.Errorf("output size %d is not a multiple of the FITS block size", buf.Len()) }

	res:=&Cube{}
	if err:=res.Read(buf); err!=nil { t.Fatalf("read: %s", err.Error()) }
	if !EqualInt32Slice(res.Naxisn, c.Naxisn) { t.Fatalf("got dimensions %v; want %v", res.Naxisn, c.Naxisn) }
	for i,v:=range res.Data {
		if math.IsNaN(float64(c.Data[i])) {
			if !math.IsNaN(float64(v)) { t.Errorf("data[%d]=%f; want NaN", i, v) }
		} else if v!=c.Data[i] {
			t.Errorf("data[%d]=%f; want %f", i, v, c.Data[i])
		}
	}
	if res.Wcs==nil { t.Fatalf("coordinate metadata lost") }
	if res.Wcs.Crota2!=c.Wcs.Crota2 || res.Wcs.ScanPA!=c.Wcs.ScanPA {
		t.Errorf("got angles %f %f; want %f %f", res.Wcs.Crota2, res.Wcs.ScanPA, c.Wcs.Crota2, c.Wcs.ScanPA)
	}
	for i:=0; i<3; i++ {
		if res.Wcs.Ctype[i]!=c.Wcs.Ctype[i] {
			t.Errorf("ctype[%d]=%q; want %q", i, res.Wcs.Ctype[i], c.Wcs.Ctype[i])
		}
	}
}

func TestNumGood(t *testing.T) {
	nan:=float32(math.NaN())
	c:=NewCubeFromNaxisn([]int32{4}, []float32{1,nan,3,nan})
	if got:=c.NumGood(); got!=2 { t.Errorf("got %d good values; want 2", got) }
}
