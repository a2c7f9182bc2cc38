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
)

// A contiguous run of samples above a detection threshold
type Clump struct {
	Lo, Hi int     // run bounds, indices inclusive
	Peak   float32 // largest value within the run
}

func (c Clump) Width() int { return c.Hi-c.Lo+1 }

// Finds contiguous runs of values at or above the threshold in a 1D series,
// ignoring bad values, keeping only runs of at least minWidth samples
func FindClumps1D(data []float32, thresh float32, minWidth int) (clumps []Clump) {
	runLo:= -1
	peak:=float32(0)
	for i:=0; i<=len(data); i++ {
		above:=false
		if i<len(data) {
			v:=data[i]
			above= !math.IsNaN(float64(v)) && v>=thresh
		}
		if above {
			if runLo<0 {
				runLo=i
				peak=data[i]
			} else if data[i]>peak {
				peak=data[i]
			}
			continue
		}
		if runLo>=0 {
			if i-runLo>=minWidth {
				clumps=append(clumps, Clump{Lo:runLo, Hi:i-1, Peak:peak})
			}
			runLo= -1
		}
	}
	return clumps
}
