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
)

// Bounds of the widest contiguous bad region along the spectral axis of a profile,
// channel indices inclusive
type GapBounds struct {
	Lo, Hi int32
}

func (g GapBounds) Width() int32 { return g.Hi-g.Lo+1 }

// Locates the widest contiguous run of bad channels in a 2-axis profile. A channel
// counts as bad if any row position is bad there, so overlapping per-row emission
// runs merge into one gap. Returns found=false if no channel is bad
func WidestGap(p *cube.Cube) (g GapBounds, found bool) {
	nRow, nc:=p.Naxisn[0], p.Naxisn[1]

	bad:=make([]bool, nc)
	for ch:=int32(0); ch<nc; ch++ {
		for row:=int32(0); row<nRow; row++ {
			if math.IsNaN(float64(p.Data[ch*nRow+row])) {
				bad[ch]=true
				break
			}
		}
	}

	bestLo, bestHi:=int32(-1), int32(-1)
	runLo:=int32(-1)
	for ch:=int32(0); ch<=nc; ch++ {
		if ch<nc && bad[ch] {
			if runLo<0 { runLo=ch }
			continue
		}
		if runLo>=0 {
			if bestLo<0 || ch-1-runLo>bestHi-bestLo {
				bestLo, bestHi=runLo, ch-1
			}
			runLo= -1
		}
	}
	if bestLo<0 { return GapBounds{}, false }
	return GapBounds{Lo:bestLo, Hi:bestHi}, true
}

// Fills bad values in a 2-axis profile by iterative relaxation: each pass replaces
// every bad value by the mean of the good values within a (2*size+1)^2 neighborhood,
// approximating a solution of Laplace's equation with the good values as boundary
// conditions. Passes use the values of the previous pass only, so fill order does
// not matter. Remaining bad values after the fixed iteration count are swept with
// nearest-good substitution along the spectral axis, so the result contains no bad
// values. Returns a new profile
func FillBad(p *cube.Cube, size int32, iterations int) *cube.Cube {
	if size<1 { size=1 }
	nRow, nc:=p.Naxisn[0], p.Naxisn[1]
	cur:=p.Clone()

	for iter:=0; iter<iterations; iter++ {
		next:=cur.Clone()
		numFilled:=0
		for ch:=int32(0); ch<nc; ch++ {
			for row:=int32(0); row<nRow; row++ {
				if !math.IsNaN(float64(cur.Data[ch*nRow+row])) { continue }
				sum, numGood:=float64(0), 0
				for dc:=-size; dc<=size; dc++ {
					ch2:=ch+dc
					if ch2<0 || ch2>=nc { continue }
					for dr:=-size; dr<=size; dr++ {
						row2:=row+dr
						if row2<0 || row2>=nRow { continue }
						v:=cur.Data[ch2*nRow+row2]
						if math.IsNaN(float64(v)) { continue }
						sum+=float64(v)
						numGood++
					}
				}
				if numGood>0 {
					next.Data[ch*nRow+row]=float32(sum/float64(numGood))
					numFilled++
				}
			}
		}
		cur=next
		if numFilled==0 { break }
	}

	sweepNearestGood(cur)
	return cur
}

// Replaces any remaining bad value with the nearest good value along its spectral
// line, falling back to zero for an entirely bad line
func sweepNearestGood(p *cube.Cube) {
	nRow, nc:=p.Naxisn[0], p.Naxisn[1]
	for row:=int32(0); row<nRow; row++ {
		for ch:=int32(0); ch<nc; ch++ {
			if !math.IsNaN(float64(p.Data[ch*nRow+row])) { continue }
			filled:=false
			for d:=int32(1); d<nc && !filled; d++ {
				if ch-d>=0 {
					if v:=p.Data[(ch-d)*nRow+row]; !math.IsNaN(float64(v)) {
						p.Data[ch*nRow+row]=v
						filled=true
					}
				}
				if !filled && ch+d<nc {
					if v:=p.Data[(ch+d)*nRow+row]; !math.IsNaN(float64(v)) {
						p.Data[ch*nRow+row]=v
						filled=true
					}
				}
			}
			if !filled { p.Data[ch*nRow+row]=0 }
		}
	}
}
