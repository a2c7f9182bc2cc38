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
	"fmt"
	"math"
	"math/cmplx"
	"gonum.org/v1/gonum/dsp/fourier"
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
)

const (
	ringingSmoothWidth = 25  // time smoothing window for the coarse ringing pass
	ringingMinWidth    = 10  // shortest clump accepted as a ringing episode
	ringingNSigma      = 5.0 // noise-derived floor above the residual median
)

// Detects long, slowly-varying correlated ringing episodes in the edginess
// residual and rejects every spectrum belonging to one. A single-spectrum
// outlier test misses these because the per-spectrum excess is small; smoothing
// along time concentrates the episode's energy instead. The peak threshold is
// the larger of the configured absolute floor and the noise-derived floor.
// Returns the number of newly rejected spectra and the dominant episode period
func flagRinging(rejected []bool, residual []float32, median, sigma float32,
	             p *config.Params, c *ops.Context, name string) (numRinging int, period float32) {
	smoothed:=kernel.BoxSmooth1D(residual, ringingSmoothWidth)

	thresh:=median+ringingNSigma*sigma
	if p.RingingMinPeak>thresh { thresh=p.RingingMinPeak }

	clumps:=kernel.FindClumps1D(smoothed, thresh, ringingMinWidth)
	for _,clump:=range clumps {
		for t:=clump.Lo; t<=clump.Hi; t++ {
			if !rejected[t] {
				rejected[t]=true
				numRinging++
			}
		}
	}
	if len(clumps)==0 { return 0, 0 }

	period=dominantPeriod(smoothed)
	fmt.Fprintf(c.Log, "%s: %d ringing episodes rejecting %d spectra above %.4g, dominant period %.1f spectra\n",
	            name, len(clumps), numRinging, thresh, period)
	return numRinging, period
}

// Estimates the dominant oscillation period of a series in samples via the
// strongest non-DC Fourier coefficient. Bad values contribute the series mean
func dominantPeriod(series []float32) float32 {
	n:=len(series)
	if n<4 { return 0 }

	mean, numGood:=float64(0), 0
	for _,v:=range series {
		if !math.IsNaN(float64(v)) {
			mean+=float64(v)
			numGood++
		}
	}
	if numGood==0 { return 0 }
	mean/=float64(numGood)

	seq:=make([]float64, n)
	for i,v:=range series {
		if math.IsNaN(float64(v)) { continue }
		seq[i]=float64(v)-mean
	}

	fft:=fourier.NewFFT(n)
	coeffs:=fft.Coefficients(nil, seq)

	bestBin, bestMag:=0, float64(0)
	for bin:=1; bin<len(coeffs); bin++ {
		if mag:=cmplx.Abs(coeffs[bin]); mag>bestMag {
			bestBin, bestMag=bin, mag
		}
	}
	if bestBin==0 { return 0 }
	return float32(n)/float32(bestBin)
}
