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


// Package config resolves recipe parameters for a run: built-in defaults,
// overridden by an optional YAML parameter file, overridden by command line
// flags. The resolved Params struct is validated once and treated as immutable
// thereafter; pipeline stages receive only the resolved struct.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"gopkg.in/yaml.v3"
)

// Mask building strategies
const (
	MaskSpatialImage  ="spatial-image"
	MaskVelocityRanges="velocity-ranges"
	MaskVolumetric    ="volumetric"
	MaskNone          ="none"
)

// Refinement mask sources
const (
	RefineFromOriginal ="original"
	RefineFromCorrected="corrected"
)

// A (lower, upper) velocity or channel pair marking known emission
type Extent struct {
	Lo, Hi float32
}

// Resolved recipe parameters for one observation. Immutable after Validate
type Params struct {
	EmissionMaskStrategy string    `yaml:"emission_mask_strategy" json:"emissionMaskStrategy"`
	EmissionThreshold    float32   `yaml:"emission_threshold"     json:"emissionThreshold"`
	EmissionExtents      string    `yaml:"emission_extents"       json:"emissionExtents"` // "lo:hi[,lo:hi...]"
	SmoothWidths         []int     `yaml:"smooth_widths"          json:"smoothWidths"`
	Interpolate          bool      `yaml:"interpolate"            json:"interpolate"`
	InterpolateWidth     int       `yaml:"interpolate_width"      json:"interpolateWidth"` // 0=auto: quarter of gap width
	Refine               bool      `yaml:"refine"                 json:"refine"`
	RefineSource         string    `yaml:"refine_source"          json:"refineSource"`
	MapPositionAngle     string    `yaml:"map_position_angle"     json:"mapPositionAngle"`  // degrees, or "auto"
	ScanPositionAngle    string    `yaml:"scan_position_angle"    json:"scanPositionAngle"` // degrees, or "auto"

	EdgeClip            []float32 `yaml:"edge_clip"             json:"edgeClip"`
	ThreshClip          float32   `yaml:"thresh_clip"           json:"threshClip"`
	Dilate              int       `yaml:"dilate"                json:"dilate"`
	Ringing             bool      `yaml:"ringing"               json:"ringing"`
	RingingAllReceptors bool      `yaml:"ringing_all_receptors" json:"ringingAllReceptors"`
	RingingReceptors    []string  `yaml:"ringing_receptors"     json:"ringingReceptors"`
	RingingMinPeak      float32   `yaml:"ringing_min_peak"      json:"ringingMinPeak"`
	MinSpectra          int       `yaml:"min_spectra"           json:"minSpectra"`
	RingingMinSpectra   int       `yaml:"ringing_min_spectra"   json:"ringingMinSpectra"`
	BadReceptors        []string  `yaml:"bad_receptors"         json:"badReceptors"`

	DiagDir    string `yaml:"diag_dir"    json:"diagDir"`
	MaxThreads int    `yaml:"max_threads" json:"maxThreads"`

	extents []Extent // parsed from EmissionExtents by Validate
}

// Returns the built-in defaults
func NewParams() *Params {
	return &Params{
		EmissionMaskStrategy: MaskSpatialImage,
		EmissionThreshold:    0.5,
		SmoothWidths:         []int{5, 25, 51},
		Interpolate:          true,
		RefineSource:         RefineFromCorrected,
		MapPositionAngle:     "auto",
		ScanPositionAngle:    "auto",
		EdgeClip:             []float32{2, 2, 2.5, 3},
		ThreshClip:           4,
		Dilate:               1,
		RingingMinPeak:       0.006, // instrument tuning value, not physics; override per instrument
		MinSpectra:           50,
		RingingMinSpectra:    200,
	}
}

// Overlays the defaults with a YAML parameter file
func LoadParams(fileName string) (*Params, error) {
	p:=NewParams()
	data, err:=os.ReadFile(fileName)
	if err!=nil { return nil, err }
	if err:=yaml.Unmarshal(data, p); err!=nil {
		return nil, fmt.Errorf("parameter file %s: %w", fileName, err)
	}
	return p, nil
}

// Validates the parameters, normalizing where the contract says so (smoothing
// widths are forced odd and >=3) and failing fast with the offending value where
// it does not. Must be called before the struct is used
func (p *Params) Validate() error {
	switch p.EmissionMaskStrategy {
	case MaskSpatialImage, MaskVelocityRanges, MaskVolumetric, MaskNone:
	default:
		return fmt.Errorf("invalid emission_mask_strategy %q", p.EmissionMaskStrategy)
	}
	switch p.RefineSource {
	case RefineFromOriginal, RefineFromCorrected:
	default:
		return fmt.Errorf("invalid refine_source %q", p.RefineSource)
	}
	if len(p.SmoothWidths)==0 {
		return fmt.Errorf("smooth_widths must not be empty")
	}
	for i,w:=range p.SmoothWidths {
		if w<3 { w=3 }
		if w%2==0 { w++ }
		p.SmoothWidths[i]=w
	}
	sort.Ints(p.SmoothWidths)
	if p.InterpolateWidth<0 {
		return fmt.Errorf("invalid interpolate_width %d", p.InterpolateWidth)
	}
	for i:=1; i<len(p.EdgeClip); i++ {
		if p.EdgeClip[i]<p.EdgeClip[i-1] {
			return fmt.Errorf("edge_clip must be non-decreasing, got %v", p.EdgeClip)
		}
	}
	if p.ThreshClip<=0 {
		return fmt.Errorf("invalid thresh_clip %g", p.ThreshClip)
	}
	if p.Dilate<0 || p.Dilate>2 {
		return fmt.Errorf("invalid dilate %d, must be 0, 1 or 2", p.Dilate)
	}
	if _, err:=ParseAngle(p.MapPositionAngle); err!=nil {
		return fmt.Errorf("invalid map_position_angle %q", p.MapPositionAngle)
	}
	if _, err:=ParseAngle(p.ScanPositionAngle); err!=nil {
		return fmt.Errorf("invalid scan_position_angle %q", p.ScanPositionAngle)
	}
	extents, err:=ParseExtents(p.EmissionExtents)
	if err!=nil { return err }
	p.extents=extents
	if p.EmissionMaskStrategy==MaskVelocityRanges && len(p.extents)==0 {
		return fmt.Errorf("emission_mask_strategy %q requires emission_extents", p.EmissionMaskStrategy)
	}
	return nil
}

// Returns the emission extents parsed by Validate
func (p *Params) Extents() []Extent { return p.extents }

// Returns true if the named receptor is on the bad receptor list
func (p *Params) IsBadReceptor(name string) bool {
	for _,r:=range p.BadReceptors {
		if r==name { return true }
	}
	return false
}

// Returns true if ringing detection applies to the named receptor.
// A listed receptor is covered even with the global switch off; with the
// switch on, a non-empty list restricts detection to the listed receptors
// unless ringing_all_receptors overrides it
func (p *Params) RingingFor(name string) bool {
	for _,r:=range p.RingingReceptors {
		if r==name { return true }
	}
	return p.Ringing && (p.RingingAllReceptors || len(p.RingingReceptors)==0)
}

// Parses an angle given in degrees, or "auto"/"" which return auto=true
func ParseAngle(s string) (auto bool, err error) {
	if s=="" || s=="auto" { return true, nil }
	_, err=strconv.ParseFloat(s, 32)
	return false, err
}

// Returns the numeric value of an angle previously accepted by ParseAngle
func AngleValue(s string) float32 {
	v, _:=strconv.ParseFloat(s, 32)
	return float32(v)
}

// Parses emission extents of the form "lo:hi[,lo:hi...]" into an ordered list.
// An empty string yields an empty list
func ParseExtents(s string) ([]Extent, error) {
	if strings.TrimSpace(s)=="" { return nil, nil }
	parts:=strings.Split(s, ",")
	extents:=make([]Extent, 0, len(parts))
	for _,part:=range parts {
		bounds:=strings.Split(strings.TrimSpace(part), ":")
		if len(bounds)!=2 {
			return nil, fmt.Errorf("malformed emission extent %q, want lo:hi", part)
		}
		lo, err:=strconv.ParseFloat(strings.TrimSpace(bounds[0]), 32)
		if err!=nil { return nil, fmt.Errorf("malformed emission extent %q: %w", part, err) }
		hi, err:=strconv.ParseFloat(strings.TrimSpace(bounds[1]), 32)
		if err!=nil { return nil, fmt.Errorf("malformed emission extent %q: %w", part, err) }
		if hi<lo { lo, hi=hi, lo }
		extents=append(extents, Extent{Lo:float32(lo), Hi:float32(hi)})
	}
	sort.Slice(extents, func(i, j int) bool { return extents[i].Lo<extents[j].Lo })
	return extents, nil
}
