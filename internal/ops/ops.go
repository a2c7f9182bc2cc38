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


package ops

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"github.com/pbnjay/memory"
	"github.com/mlnoga/swclean/internal/cube"
)

// An execution context for operators
type Context struct {
	Log        io.Writer
	MemoryMB   int             // memory.TotalMemory()/1024/1024
	MaxThreads int             `json:"maxThreads"`
	DiagDir    string          // directory for diagnostic artifacts, empty=off
	Cancel     <-chan struct{} // cooperative cancellation, polled between cubes/tiles
}

func NewContext(log io.Writer) *Context {
	return &Context{
		Log:        log,
		MemoryMB:   int(memory.TotalMemory()/1024/1024),
		MaxThreads: runtime.GOMAXPROCS(0),
	}
}

// Returns true once cancellation has been requested. Never blocks
func (c *Context) Cancelled() bool {
	if c.Cancel==nil { return false }
	select {
	case <-c.Cancel:
		return true
	default:
		return false
	}
}

// Logs a prominently tagged warning. Warnings typically indicate a parameter
// mismatch that silently degrades output quality without stopping the run
func (c *Context) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(c.Log, "WARNING "+format, args...)
}

// A promise for a PPV cube. Returns a materialized cube, or an error
type Promise func() (f *cube.Cube, err error)

// Materializes all promises with given concurrency limit
func MaterializeAll(ins []Promise, maxThreads int, forget bool) (outs []*cube.Cube, err error) {
	if len(ins)==0 { return nil, nil }
	if !forget {
		outs=make([]*cube.Cube, len(ins))
	}
	limiter:=make(chan bool, maxThreads)
	errs   :=make(chan error, len(ins))
	for i, in := range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			f, err:=theIn() // materialize the promise
			if err!=nil {
				errs <- err
				return
			}
			if !forget {
				outs[i]=f
			}
			errs <- nil
		}(i, in)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	for i:=0; i<len(ins); i++ {  // collect errors
		e := <- errs
		if e!=nil {
			if err==nil {
				err = e
			} else {
				err = fmt.Errorf("%s; %s", err.Error(), e.Error())
			}
		}
	}
	return RemoveNils(outs), err
}

// Remove nils from an array of cubes, editing the underlying array in place
func RemoveNils(cubes []*cube.Cube) []*cube.Cube {
	o:=0
	for i:=0; i<len(cubes); i+=1 {
		if cubes[i]!=nil {
			cubes[o]=cubes[i]
			o+=1
		}
	}
	for i:=o; i<len(cubes); i++ {
		cubes[i]=nil
	}
	return cubes[:o]
}

// A general cube processing operator: takes n promises as inputs,
// and produces m promises as output or an error
type Operator interface {
	GetType() string
	IsActive() bool
	MakePromises(ins []Promise, c *Context) (outs []Promise, err error)
}

// Base type for operators, including type information for JSON serializing/deserializing
type OpBase struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool  { return op.Active }

// Factory method for operators. For JSON serializing/deserializing
type OperatorFactory func() Operator

// Mapping from operator type strings to factory method for the type
var operatorFactories=map[string]OperatorFactory{}

// Returns the operator factory for a given type string
func GetOperatorFactory(t string) OperatorFactory {
	return operatorFactories[t]
}

// Registers a given type string for a given type of Operator, identified via an exemplar generator
func SetOperatorFactory(f OperatorFactory) {
	op:=f()
	t:=op.GetType()
	if GetOperatorFactory(t)!=nil { panic(fmt.Sprintf("error: re-registering operator key %s\n", t)) }
	operatorFactories[t]=f
}

// A unary cube processing operator: given n promises as inputs,
// applies itself to each of them individually and returns n output promises or an error
type OperatorUnary interface {
	Operator
	Apply(f *cube.Cube, c *Context) (fOut *cube.Cube, err error)
}

// Abstract base type for unary operators
type OpUnaryBase struct {
	OpBase
	Apply func(f *cube.Cube, c *Context) (fOut *cube.Cube, err error) `json:"-"`
}

func (op *OpUnaryBase) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins)==0 { return nil, errors.New("unary operator with zero inputs") }
	outs=make([]Promise, len(ins))
	for i,in:=range ins {
		outs[i]=op.MakePromise(in, c)
	}
	return outs, nil
}

func (op *OpUnaryBase) MakePromise(in Promise, c *Context) (out Promise) {
	return func() (f *cube.Cube, err error) {
		if c.Cancelled()         { return nil, errors.New("cancelled") }
		if f, err=in();          err!=nil { return nil, err } // materialize input promise
		if f, err=op.Apply(f,c); err!=nil { return nil, err } // apply unary operator
		return f, nil                                         // wrap output in promise
	}
}
