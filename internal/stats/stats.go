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


package stats

import (
	"fmt"
	"math"
	"github.com/valyala/fastrand"
	"github.com/mlnoga/swclean/internal/qsort"
)

// Basic statistics on data arrays with bad values marked as IEEE NaN
type Stats struct {
	Min     float32  // Minimum of the good values
	Max     float32  // Maximum of the good values
	Mean    float32  // Mean (average) of the good values
	StdDev  float32  // Standard deviation (norm 2, sigma) of the good values
	NumGood int      // Number of good (non-NaN) values

	Location float32 // Robust location indicator (sigma-clipped median)
	Scale    float32 // Robust scale indicator (sigma-clipped MAD, normalized to Gaussian sigma)
}

// Pretty print basic stats to string
func (s *Stats) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g Location %.6g Scale %.6g Good %d",
		s.Min, s.Max, s.Mean, s.StdDev, s.Location, s.Scale, s.NumGood)
}

// Calculate basic statistics for a data array, skipping NaN entries
func CalcStats(data []float32) (s *Stats) {
	s=&Stats{Min:float32(math.MaxFloat32), Max:-float32(math.MaxFloat32)}
	mean:=float64(0)
	for _,v:=range data {
		if math.IsNaN(float64(v)) { continue }
		if v<s.Min { s.Min=v }
		if v>s.Max { s.Max=v }
		mean+=float64(v)
		s.NumGood++
	}
	if s.NumGood==0 {
		nan:=float32(math.NaN())
		s.Min, s.Max, s.Mean, s.StdDev, s.Location, s.Scale=nan, nan, nan, nan, nan, nan
		return s
	}
	s.Mean=float32(mean/float64(s.NumGood))

	variance:=float64(0)
	for _,v:=range data {
		if math.IsNaN(float64(v)) { continue }
		diff:=float64(v-s.Mean)
		variance+=diff*diff
	}
	s.StdDev=float32(math.Sqrt(variance/float64(s.NumGood)))

	s.Location, s.Scale=SigmaClippedMedianAndMAD(data, []float32{2,2,2.5,3})
	return s
}

// Calculates mean and standard deviation of the given values, skipping NaN entries
func MeanStdDev(xs []float32) (mean, stdDev float32, numGood int) {
	xmean:=float64(0)
	for _,x:=range xs {
		if math.IsNaN(float64(x)) { continue }
		xmean+=float64(x)
		numGood++
	}
	if numGood==0 { return float32(math.NaN()), float32(math.NaN()), 0 }
	xmean/=float64(numGood)
	xvar:=float64(0)
	for _,x:=range xs {
		if math.IsNaN(float64(x)) { continue }
		diff:=float64(x)-xmean
		xvar+=diff*diff
	}
	xvar/=float64(numGood)
	return float32(xmean), float32(math.Sqrt(xvar)), numGood
}

// Gathers the good (non-NaN) values of data into a freshly allocated buffer
func GatherGood(data []float32) []float32 {
	good:=make([]float32, 0, len(data))
	for _,v:=range data {
		if !math.IsNaN(float64(v)) { good=append(good, v) }
	}
	return good
}

// Median of the good values of the data. Does not change the data
func Median(data []float32) float32 {
	good:=GatherGood(data)
	if len(good)==0 { return float32(math.NaN()) }
	return qsort.QSelectMedianFloat32(good)
}

// Returns the iteratively sigma-clipped median and MAD of the data, skipping NaN entries.
// One clipping iteration is performed per entry of the non-decreasing clip level list.
// Does not change the data
func SigmaClippedMedianAndMAD(data []float32, clips []float32) (median, mad float32) {
	remaining:=GatherGood(data)
	if len(remaining)==0 { return float32(math.NaN()), float32(math.NaN()) }
	tmp:=make([]float32, len(remaining))

	median, mad=medianAndMAD(remaining, tmp)
	for _,clip:=range clips {
		lowBound :=median - clip*mad
		highBound:=median + clip*mad
		kept:=0
		for _,r:=range remaining {
			if r>=lowBound && r<=highBound {
				remaining[kept]=r
				kept++
			}
		}
		if kept<=3 || kept==len(remaining) { break }
		remaining=remaining[:kept]
		median, mad=medianAndMAD(remaining, tmp)
	}
	return median, mad
}

// Median and MAD of the given NaN-free values. Reorders a, uses tmp as scratchpad
func medianAndMAD(a, tmp []float32) (median, mad float32) {
	median=qsort.QSelectMedianFloat32(a)
	tmp=tmp[:len(a)]
	for i,v:=range a {
		tmp[i]=float32(math.Abs(float64(v-median)))
	}
	mad=qsort.QSelectMedianFloat32(tmp)*1.4826 // factor normalizes MAD to Gaussian standard deviation
	return median, mad
}

// Calculates fast approximate median of the (presumably large) data by subsampling
// the given number of values and taking the median of that. Skips NaN entries.
// Uses provided samples array as scratchpad
func FastApproxMedian(data []float32, samples []float32) float32 {
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	for i:=range samples {
		var d float32
		for retries:=0; ; retries++ {
			d=data[rng.Uint32n(max)]
			if !math.IsNaN(float64(d)) || retries>=1000 { break }
		}
		samples[i]=d
	}
	return qsort.QSelectMedianFloat32(samples)
}

// Calculates fast approximate MAD of the (presumably large) data around the given
// location by subsampling. Skips NaN entries. Uses provided samples array as scratchpad
func FastApproxMAD(data []float32, location float32, samples []float32) float32 {
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	for i:=range samples {
		var d float32
		for retries:=0; ; retries++ {
			d=data[rng.Uint32n(max)]
			if !math.IsNaN(float64(d)) || retries>=1000 { break }
		}
		samples[i]=float32(math.Abs(float64(d-location)))
	}
	return qsort.QSelectMedianFloat32(samples)*1.4826 // normalize to Gaussian std dev.
}

// Returns a rapid robust estimation of location and scale for large arrays, based on
// randomized sampling with iterative sigma clipping. Falls back to the exact
// estimator for small arrays
func FastApproxLocationAndScale(data []float32, numSamples int) (location, scale float32) {
	if len(data)<=numSamples {
		return SigmaClippedMedianAndMAD(data, []float32{2,2,2.5,3})
	}
	samples:=make([]float32, numSamples)
	location=FastApproxMedian(data, samples)
	scale   =FastApproxMAD(data, location, samples)
	for i:=0; i<10; i++ {
		lowBound :=location - 3*scale
		highBound:=location + 3*scale
		newLocation, newScale:=boundedMedianAndMAD(data, lowBound, highBound, samples)
		if float32(math.Abs(float64(newLocation-location))+math.Abs(float64(newScale-scale)))<=1e-6 { break }
		location, scale=newLocation, newScale
	}
	return location, scale
}

func boundedMedianAndMAD(data []float32, lowBound, highBound float32, samples []float32) (median, mad float32) {
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	for i:=range samples {
		var d float32
		for retries:=0; ; retries++ {
			d=data[rng.Uint32n(max)]
			if (!math.IsNaN(float64(d)) && d>=lowBound && d<=highBound) || retries>=1000 { break }
		}
		samples[i]=d
	}
	median=qsort.QSelectMedianFloat32(samples)
	for i,s:=range samples {
		samples[i]=float32(math.Abs(float64(s-median)))
	}
	mad=qsort.QSelectMedianFloat32(samples)*1.4826
	return median, mad
}
