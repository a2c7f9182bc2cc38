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


// Package rfi detects and blanks individual spectra corrupted by transient
// high-frequency electronic interference, or by long correlated ringing
// episodes, before they can bias the scan-row baseline estimate. Each receptor
// is analyzed independently on its raw time series of spectra.
package rfi

import (
	"fmt"
	"math"
	"gonum.org/v1/gonum/stat"
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/diag"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
	"github.com/mlnoga/swclean/internal/stats"
)

const (
	edgeTrimFrac    = 0.05 // fraction of always-noisy band edge channels excluded from edge detection, per side
	stepMedianWidth = 31   // running median window for step detection
	stepNSigma      = 3.0  // a step is accepted when its jump exceeds this many clipped sigmas
	bgMedianWidth   = 51   // running median window for background subtraction
)

// The time series of one receptor: ntime spectra of nchan channels each
type ReceptorSeries struct {
	Name         string
	NChan, NTime int32
	Data         []float32 // index t*nchan+ch
}

// The flagging outcome for one receptor
type Result struct {
	Receptor    string  `json:"receptor"`
	NTime       int     `json:"nTime"`
	Rejected    []bool  `json:"-"`       // per-spectrum reject mask
	NumRejected int     `json:"numRejected"`
	NumRinging  int     `json:"numRinging"`    // rejected spectra attributed to ringing episodes
	RingPeriod  float32 `json:"ringPeriod"`    // dominant ringing period in spectra, 0 if none
	Skipped     bool    `json:"skipped"`
	Reason      string  `json:"reason,omitempty"`
}

// Splits a 3-axis time-series cube (channel, time, receptor plane) into
// per-receptor series. Data is referenced, not copied. Receptor names default
// to R00, R01, ... when the names list is shorter than the receptor axis
func SplitReceptors(f *cube.Cube, names []string) ([]*ReceptorSeries, error) {
	if len(f.Naxisn)!=3 { return nil, fmt.Errorf("cannot split %s array into receptor series", f.DimensionsToString()) }
	nchan, ntime, nrec:=f.Naxisn[0], f.Naxisn[1], f.Naxisn[2]
	plane:=nchan*ntime
	series:=make([]*ReceptorSeries, nrec)
	for r:=int32(0); r<nrec; r++ {
		name:=fmt.Sprintf("R%02d", r)
		if int(r)<len(names) { name=names[r] }
		series[r]=&ReceptorSeries{
			Name:  name,
			NChan: nchan,
			NTime: ntime,
			Data:  f.Data[r*plane:(r+1)*plane],
		}
	}
	return series, nil
}

// Flags interference-corrupted spectra of one receptor. Bad receptors are
// rejected wholesale; receptors with too few valid spectra are skipped with a
// warning. Otherwise spectra whose background-subtracted edginess exceeds the
// threshold are rejected, reject runs are dilated, and ringing episodes are
// detected when enabled for this receptor
func FlagReceptor(rs *ReceptorSeries, p *config.Params, c *ops.Context) *Result {
	res:=&Result{Receptor: rs.Name, NTime: int(rs.NTime), Rejected: make([]bool, rs.NTime)}

	if p.IsBadReceptor(rs.Name) {
		for t:=range res.Rejected { res.Rejected[t]=true }
		res.NumRejected=int(rs.NTime)
		res.Reason="bad receptor"
		fmt.Fprintf(c.Log, "%s: rejecting all %d spectra of listed bad receptor\n", rs.Name, rs.NTime)
		return res
	}

	edginess, numValid:=edginessProfile(rs)
	if numValid<p.MinSpectra {
		res.Skipped=true
		res.Reason=fmt.Sprintf("only %d of %d spectra valid, need %d", numValid, rs.NTime, p.MinSpectra)
		c.Warnf("%s: %s, skipping interference flagging\n", rs.Name, res.Reason)
		return res
	}

	corrected, stepApplied:=correctSteps(edginess)
	if !stepApplied { corrected=edginess } // detector rejected the correction attempt

	background:=kernel.MedianSmooth1D(corrected, bgMedianWidth)
	residual:=make([]float32, len(corrected))
	for i:=range corrected {
		residual[i]=corrected[i]-background[i]
	}

	median, sigma:=stats.SigmaClippedMedianAndMAD(residual, p.EdgeClip)
	if math.IsNaN(float64(sigma)) || sigma<=0 {
		res.Skipped=true
		res.Reason="no noise estimate for edginess residual"
		c.Warnf("%s: %s, skipping interference flagging\n", rs.Name, res.Reason)
		return res
	}
	thresh:=median+p.ThreshClip*sigma

	for t:=range residual {
		if !math.IsNaN(float64(residual[t])) && residual[t]>thresh {
			res.Rejected[t]=true
		}
	}
	dilateRuns(res.Rejected, p.Dilate)

	if p.RingingFor(rs.Name) {
		if numValid>=p.RingingMinSpectra {
			res.NumRinging, res.RingPeriod=flagRinging(res.Rejected, residual, median, sigma, p, c, rs.Name)
		} else {
			c.Warnf("%s: only %d of %d spectra valid, need %d, skipping ringing detection\n",
			        rs.Name, numValid, rs.NTime, p.RingingMinSpectra)
		}
	}

	for _,r:=range res.Rejected {
		if r { res.NumRejected++ }
	}
	fmt.Fprintf(c.Log, "%s: rejected %d of %d spectra, threshold %.4g, step correction %v\n",
	            rs.Name, res.NumRejected, rs.NTime, thresh, stepApplied)

	if c.DiagDir!="" {
		diag.SaveSeriesPlot(c.DiagDir, fmt.Sprintf("edginess_%s.png", rs.Name), rs.Name, residual, thresh, c.Log)
	}
	return res
}

// Computes the per-spectrum edginess profile of a receptor: the squared
// discrete Laplacian along the spectral axis, normalized by the spectrum's
// variance to make it scale-free, mean-collapsed over the trimmed band.
// Spectra without good data yield bad profile entries. Also returns the number
// of valid spectra
func edginessProfile(rs *ReceptorSeries) (profile []float32, numValid int) {
	nchan, ntime:=int(rs.NChan), int(rs.NTime)
	trim:=int(float32(nchan)*edgeTrimFrac)
	lo, hi:=trim, nchan-trim // [lo,hi) band used for edge detection
	if hi-lo<3 { lo, hi=0, nchan }

	profile=make([]float32, ntime)
	nan:=float32(math.NaN())
	spectrum:=make([]float64, nchan)
	for t:=0; t<ntime; t++ {
		row:=rs.Data[t*nchan:(t+1)*nchan]
		numGood:=0
		for _,v:=range row {
			if !math.IsNaN(float64(v)) {
				spectrum[numGood]=float64(v)
				numGood++
			}
		}
		if numGood<3 {
			profile[t]=nan
			continue
		}
		variance:=stat.Variance(spectrum[:numGood], nil)
		if variance<=0 { variance=1 }

		sum, n:=float64(0), 0
		for ch:=lo+1; ch<hi-1; ch++ {
			l, m, r:=row[ch-1], row[ch], row[ch+1]
			if math.IsNaN(float64(l)) || math.IsNaN(float64(m)) || math.IsNaN(float64(r)) { continue }
			lap:=float64(l)-2*float64(m)+float64(r)
			sum+=lap*lap/variance
			n++
		}
		if n==0 {
			profile[t]=nan
			continue
		}
		profile[t]=float32(sum/float64(n))
		numValid++
	}
	return profile, numValid
}

// Detects and corrects a single level step in the edginess profile, as caused
// by a receptor gain change mid-observation. The largest jump of the running
// median is accepted as a step when it exceeds stepNSigma clipped sigmas of
// the profile's first differences; otherwise the attempt is rejected and the
// caller falls back to the raw profile
func correctSteps(profile []float32) (corrected []float32, applied bool) {
	if len(profile)<2*stepMedianWidth { return nil, false }
	smooth:=kernel.MedianSmooth1D(profile, stepMedianWidth)

	bestT, bestJump:= -1, float32(0)
	for t:=0; t<len(smooth)-1; t++ {
		if math.IsNaN(float64(smooth[t])) || math.IsNaN(float64(smooth[t+1])) { continue }
		jump:=smooth[t+1]-smooth[t]
		if float32(math.Abs(float64(jump)))>float32(math.Abs(float64(bestJump))) {
			bestT, bestJump=t, jump
		}
	}
	if bestT<0 { return nil, false }

	diffs:=make([]float32, 0, len(profile)-1)
	for t:=0; t<len(profile)-1; t++ {
		if math.IsNaN(float64(profile[t])) || math.IsNaN(float64(profile[t+1])) { continue }
		diffs=append(diffs, profile[t+1]-profile[t])
	}
	_, scale:=stats.SigmaClippedMedianAndMAD(diffs, []float32{2,2,2.5,3})
	if math.IsNaN(float64(scale)) || float32(math.Abs(float64(bestJump)))<=stepNSigma*scale {
		return nil, false
	}

	corrected=append([]float32(nil), profile...)
	for t:=bestT+1; t<len(corrected); t++ {
		corrected[t]-=bestJump
	}
	return corrected, true
}

// Dilates reject runs by n positions on each side to catch partially-affected
// transition spectra, in place
func dilateRuns(rejected []bool, n int) {
	if n<=0 { return }
	src:=append([]bool(nil), rejected...)
	for t,r:=range src {
		if !r { continue }
		for d:=1; d<=n; d++ {
			if t-d>=0 { rejected[t-d]=true }
			if t+d<len(rejected) { rejected[t+d]=true }
		}
	}
}

// Applies a reject mask to the receptor's time series by stamping whole
// spectra bad, preserving array bounds, in place
func ApplyRejectMask(rs *ReceptorSeries, rejected []bool) {
	nchan:=int(rs.NChan)
	nan:=float32(math.NaN())
	for t,r:=range rejected {
		if !r { continue }
		row:=rs.Data[t*nchan:(t+1)*nchan]
		for ch:=range row { row[ch]=nan }
	}
}
