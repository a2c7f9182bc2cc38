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


package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err:=NewParams().Validate(); err!=nil {
		t.Errorf("default parameters fail validation: %s", err.Error())
	}
}

func TestValidateNormalizesWidths(t *testing.T) {
	p:=NewParams()
	p.SmoothWidths=[]int{4, 2, 51}
	if err:=p.Validate(); err!=nil { t.Fatalf("validate: %s", err.Error()) }
	want:=[]int{3, 5, 51}
	for i,w:=range want {
		if p.SmoothWidths[i]!=w { t.Errorf("smooth width %d is %d; want %d", i, p.SmoothWidths[i], w) }
	}
}

type validateTestCase struct {
	Name   string
	Mutate func(p *Params)
}

func TestValidateRejects(t *testing.T) {
	tcs:=[]validateTestCase{
		{"badStrategy",       func(p *Params) { p.EmissionMaskStrategy="fancy" }},
		{"badRefineSource",   func(p *Params) { p.RefineSource="smoothed" }},
		{"emptyWidths",       func(p *Params) { p.SmoothWidths=nil }},
		{"negativeInterp",    func(p *Params) { p.InterpolateWidth= -1 }},
		{"decreasingClips",   func(p *Params) { p.EdgeClip=[]float32{3, 2} }},
		{"zeroThreshClip",    func(p *Params) { p.ThreshClip=0 }},
		{"dilateOutOfRange",  func(p *Params) { p.Dilate=3 }},
		{"badMapAngle",       func(p *Params) { p.MapPositionAngle="north" }},
		{"badScanAngle",      func(p *Params) { p.ScanPositionAngle="east" }},
		{"velocityNoExtents", func(p *Params) { p.EmissionMaskStrategy=MaskVelocityRanges }},
		{"malformedExtents",  func(p *Params) { p.EmissionExtents="10;20" }},
	}
	for _,tc:=range tcs {
		p:=NewParams()
		tc.Mutate(p)
		if err:=p.Validate(); err==nil {
			t.Errorf("%s: validation did not fail", tc.Name)
		}
	}
}

type extentsTestCase struct {
	Name    string
	Input   string
	Want    []Extent
	WantErr bool
}

func TestParseExtents(t *testing.T) {
	tcs:=[]extentsTestCase{
		{"empty",     "",             nil, false},
		{"single",    "10:20",        []Extent{{10,20}}, false},
		{"swapped",   " 30 : 20 ",    []Extent{{20,30}}, false},
		{"sorted",    "5:8,1:2",      []Extent{{1,2},{5,8}}, false},
		{"negatives", "-12.5:-2.5",   []Extent{{-12.5,-2.5}}, false},
		{"noColon",   "5",            nil, true},
		{"nonNumber", "a:b",          nil, true},
	}
	for _,tc:=range tcs {
		got, err:=ParseExtents(tc.Input)
		if (err!=nil)!=tc.WantErr {
			t.Errorf("%s: got error %v; want error %v", tc.Name, err, tc.WantErr)
			continue
		}
		if len(got)!=len(tc.Want) {
			t.Errorf("%s: got %d extents; want %d", tc.Name, len(got), len(tc.Want))
			continue
		}
		for i,w:=range tc.Want {
			if got[i]!=w {
				t.Errorf("%s: extent %d is %v; want %v", tc.Name, i, got[i], w)
			}
		}
	}
}

func TestReceptorSelectors(t *testing.T) {
	p:=NewParams()
	p.BadReceptors=[]string{"R03"}
	if !p.IsBadReceptor("R03") { t.Errorf("R03 not recognized as bad") }
	if p.IsBadReceptor("R04") { t.Errorf("R04 wrongly recognized as bad") }

	if p.RingingFor("R01") { t.Errorf("ringing enabled although switched off") }
	p.RingingReceptors=[]string{"R01"}
	if !p.RingingFor("R01") { t.Errorf("ringing not enabled for listed receptor without global switch") }
	if p.RingingFor("R02") { t.Errorf("ringing enabled for unlisted receptor") }
	p.Ringing=true
	if p.RingingFor("R02") { t.Errorf("restricting receptor list ignored with global switch") }
	p.RingingAllReceptors=true
	if !p.RingingFor("R02") { t.Errorf("ringing not enabled with all-receptors setting") }
	p.RingingAllReceptors=false
	p.RingingReceptors=nil
	if !p.RingingFor("R02") { t.Errorf("global switch alone did not enable ringing") }
}

func TestLoadParams(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "params.yaml")
	yaml:="thresh_clip: 5\nsmooth_widths: [7]\nemission_extents: \"10:20\"\n"
	if err:=os.WriteFile(fileName, []byte(yaml), 0644); err!=nil { t.Fatalf("write: %s", err.Error()) }

	p, err:=LoadParams(fileName)
	if err!=nil { t.Fatalf("load: %s", err.Error()) }
	if p.ThreshClip!=5 { t.Errorf("got thresh_clip %f; want 5", p.ThreshClip) }
	if len(p.SmoothWidths)!=1 || p.SmoothWidths[0]!=7 { t.Errorf("got smooth_widths %v; want [7]", p.SmoothWidths) }
	if !p.Interpolate { t.Errorf("default interpolate setting lost") }
	if err:=p.Validate(); err!=nil { t.Fatalf("validate: %s", err.Error()) }
	if len(p.Extents())!=1 { t.Errorf("got %d extents; want 1", len(p.Extents())) }

	if _, err:=LoadParams(filepath.Join(t.TempDir(), "missing.yaml")); err==nil {
		t.Errorf("loading a missing file did not fail")
	}
}
