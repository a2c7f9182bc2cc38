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
	"encoding/json"
	"errors"
	"fmt"
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/ops"
)

// Flags all receptors of a time-series cube in place, stamping rejected
// spectra bad. Receptors are independent, so they are processed by a bounded
// worker pool. Returns the per-receptor results in receptor order
func FlagCube(f *cube.Cube, names []string, p *config.Params, c *ops.Context) ([]*Result, error) {
	series, err:=SplitReceptors(f, names)
	if err!=nil { return nil, err }
	if c.Cancelled() { return nil, errors.New("cancelled") }

	results:=make([]*Result, len(series))
	limiter:=make(chan bool, c.MaxThreads)
	for i, rs := range series {
		limiter <- true
		go func(i int, rs *ReceptorSeries) {
			defer func() { <-limiter }()
			res:=FlagReceptor(rs, p, c)
			ApplyRejectMask(rs, res.Rejected) // planes are disjoint, safe in parallel
			results[i]=res
		}(i, rs)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	return results, nil
}

// Interference flagging operator: takes one time-series cube, produces a copy
// with all rejected spectra stamped bad
type OpFlag struct {
	ops.OpUnaryBase
	Params    *config.Params `json:"params"`
	Receptors []string       `json:"receptors"` // receptor names per plane, defaults generated when empty
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpFlagDefault()}) } // register the operator for JSON decoding

func NewOpFlagDefault() *OpFlag { return NewOpFlag(config.NewParams(), nil) }

func NewOpFlag(params *config.Params, receptors []string) *OpFlag {
	op:=OpFlag{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "flag", Active: true}},
		Params:      params,
		Receptors:   receptors,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the operator from JSON. Uses getters and setters to validate the loaded values
func (op *OpFlag) UnmarshalJSON(data []byte) error {
	type defaults OpFlag
	def:=defaults(*NewOpFlagDefault())
	if err:=json.Unmarshal(data, &def); err!=nil { return err }
	*op=OpFlag(def)
	op.OpUnaryBase.Apply=op.Apply
	return nil
}

func (op *OpFlag) Apply(f *cube.Cube, c *ops.Context) (result *cube.Cube, err error) {
	p:=op.Params
	if p==nil { p=config.NewParams() }
	if err:=p.Validate(); err!=nil { return nil, err }

	result=f.Clone()
	results, err:=FlagCube(result, op.Receptors, p, c)
	if err!=nil { return nil, err }

	numRejected, numRinging:=0, 0
	for _,res:=range results {
		numRejected+=res.NumRejected
		numRinging+=res.NumRinging
	}
	fmt.Fprintf(c.Log, "%d: Flagged %d receptors, rejected %d spectra (%d from ringing)\n",
	            f.ID, len(results), numRejected, numRinging)
	return result, nil
}
