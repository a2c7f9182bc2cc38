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


package sw

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/diag"
	"github.com/mlnoga/swclean/internal/kernel"
	"github.com/mlnoga/swclean/internal/ops"
)

// Refinement controller states
type refineState int

const (
	stateInitial refineState = iota // first pass with the configured coarse mask
	stateRefined                    // second pass with a volumetric mask from the refine source
	stateDone
)

// Standing-wave clean operator: orients the cube, builds an emission mask,
// estimates the per-row baseline, separates the ripple and subtracts it, then
// optionally refines with a volumetric mask built from the partially corrected
// cube. Takes one input cube, produces the corrected cube
type OpSWClean struct {
	ops.OpUnaryBase
	Params     *config.Params `json:"params"`
	MomentFile string         `json:"momentFile"` // optional precomputed moment map for the spatial-image strategy
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSWCleanDefault()}) } // register the operator for JSON decoding

func NewOpSWCleanDefault() *OpSWClean { return NewOpSWClean(config.NewParams(), "") }

func NewOpSWClean(params *config.Params, momentFile string) *OpSWClean {
	op:=OpSWClean{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "swClean", Active: true}},
		Params:      params,
		MomentFile:  momentFile,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the operator from JSON. Uses getters and setters to validate the loaded values
func (op *OpSWClean) UnmarshalJSON(data []byte) error {
	type defaults OpSWClean
	def:=defaults(*NewOpSWCleanDefault())
	if err:=json.Unmarshal(data, &def); err!=nil { return err }
	*op=OpSWClean(def)
	op.OpUnaryBase.Apply=op.Apply
	return nil
}

func (op *OpSWClean) Apply(f *cube.Cube, c *ops.Context) (result *cube.Cube, err error) {
	p:=op.Params
	if p==nil { p=config.NewParams() }
	if err:=p.Validate(); err!=nil { return nil, err }
	if len(f.Naxisn)!=3 { return nil, fmt.Errorf("%d: cannot clean %s array, need a three-axis cube", f.ID, f.DimensionsToString()) }

	var moment *cube.Cube
	if op.MomentFile!="" {
		if moment, err=cube.NewCubeFromFile(op.MomentFile, f.ID, c.Log); err!=nil { return nil, err }
	}

	rotated, o, err:=Orient(f, p, c)
	if err!=nil { return nil, err }
	if moment!=nil && o.Angle!=0 {
		if moment, err=orientPlane(moment, o); err!=nil { return nil, err }
	}

	var corrected *cube.Cube
	var gap *kernel.GapBounds
	state:=stateInitial
	for state!=stateDone {
		if c.Cancelled() { return nil, errors.New("cancelled") }

		switch state {
		case stateInitial:
			mask, err:=BuildMask(rotated, moment, p, c)
			if err!=nil { return nil, err }
			if corrected, gap, err=op.runPass(f, rotated, mask, o, gap, p, c); err!=nil { return nil, err }
			if p.Refine && mask!=nil {
				state=stateRefined
			} else {
				if p.Refine {
					c.Warnf("%d: no usable emission mask, skipping refinement pass\n", f.ID)
				}
				state=stateDone
			}
			mask=nil // release pass-scoped artifacts

		case stateRefined:
			src:=corrected
			if p.RefineSource==config.RefineFromOriginal { src=f }
			rsrc:=rotated
			if src!=f {
				if rsrc, err=orientLike(src, o); err!=nil { return nil, err }
			}
			if !cube.EqualInt32Slice(rsrc.Naxisn, rotated.Naxisn) {
				c.Warnf("%d: refine source bounds %s differ from %s, keeping first pass result\n",
				        f.ID, rsrc.DimensionsToString(), rotated.DimensionsToString())
				state=stateDone
				break
			}
			mask, err:=buildVolumetricMask(rsrc, c)
			if err!=nil { return nil, err }
			if mask==nil {
				state=stateDone // degenerate refinement mask, first pass result is final
				break
			}
			if corrected, gap, err=op.runPass(f, rotated, mask, o, gap, p, c); err!=nil { return nil, err }
			mask, rsrc=nil, nil // release pass-scoped artifacts
			state=stateDone
		}
	}
	return corrected, nil
}

// Runs one correction pass over the original cube: apply the mask in oriented
// pixel space, collapse to a scan-row profile, fill gaps, separate the ripple
// and subtract the grown, derotated baseline from the original. The gap bounds
// cache carries over between passes
func (op *OpSWClean) runPass(orig, rotated, mask *cube.Cube, o *Orientation, cachedGap *kernel.GapBounds,
	                         p *config.Params, c *ops.Context) (corrected *cube.Cube, gap *kernel.GapBounds, err error) {
	masked:=rotated
	if mask!=nil {
		if masked, err=rotated.ApplyMask(mask); err!=nil { return nil, nil, err }
	}

	profile, err:=CollapseRows(masked, o, c)
	if err!=nil { return nil, nil, err }
	masked=nil // release, the profile is all later stages need

	filled, gap, err:=InterpolateGaps(profile, p, cachedGap, c)
	if err!=nil { return nil, nil, err }

	baseline, err:=SeparateRipple(filled, p.SmoothWidths, c)
	if err!=nil { return nil, nil, err }

	if c.DiagDir!="" {
		diag.SaveProfileHeatmap(c.DiagDir, fmt.Sprintf("baseline_%d.png", orig.ID), baseline, c.Log)
		diag.SaveCube(c.DiagDir, fmt.Sprintf("profile_%d.fits", orig.ID), profile, c.Log)
	}
	profile, filled=nil, nil // release pass-scoped artifacts

	corrected, err=SubtractBaseline(orig, rotated, baseline, o, c)
	if err!=nil { return nil, nil, err }
	return corrected, gap, nil
}

// Applies this cube's orientation rotation to another cube with the same
// spatial bounds, e.g. the refinement source
func orientLike(f *cube.Cube, o *Orientation) (*cube.Cube, error) {
	if o.Angle==0 { return f, nil }
	rotated, err:=kernel.RotateSpatial(f, o.Angle)
	if err!=nil { return nil, err }
	rotated, err=kernel.TrimToValid(rotated)
	if err!=nil { return nil, err }
	rotated.Wcs=o.Wcs.RotateBy(o.Angle)
	return rotated, nil
}

// Applies the orientation rotation to a 2D moment map so spatial masks line up
// with the rotated cube
func orientPlane(m *cube.Cube, o *Orientation) (*cube.Cube, error) {
	rotated, err:=kernel.RotateSpatial(m, o.Angle)
	if err!=nil { return nil, err }
	return kernel.TrimToValid(rotated)
}
