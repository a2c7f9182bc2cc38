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
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"github.com/mlnoga/swclean/internal/cube"
)

func TestRemoveNils(t *testing.T) {
	a, b:=&cube.Cube{}, &cube.Cube{}
	res:=RemoveNils([]*cube.Cube{nil, a, nil, b, nil})
	if len(res)!=2 || res[0]!=a || res[1]!=b { t.Errorf("got %d cubes in wrong order", len(res)) }
}

func TestMaterializeAll(t *testing.T) {
	mk:=func(id int) Promise {
		return func() (*cube.Cube, error) {
			f:=cube.NewCubeFromNaxisn([]int32{2,2}, nil)
			f.ID=id
			return f, nil
		}
	}
	outs, err:=MaterializeAll([]Promise{mk(0), mk(1), mk(2)}, 2, false)
	if err!=nil { t.Fatalf("materialize: %s", err.Error()) }
	if len(outs)!=3 { t.Fatalf("got %d cubes; want 3", len(outs)) }
	for i,f:=range outs {
		if f.ID!=i { t.Errorf("cube %d has ID %d; want input order preserved", i, f.ID) }
	}

	outs, err=MaterializeAll([]Promise{mk(0)}, 2, true)
	if err!=nil { t.Fatalf("materialize with forget: %s", err.Error()) }
	if len(outs)!=0 { t.Errorf("got %d cubes with forget; want 0", len(outs)) }
}

func TestMaterializeAllJoinsErrors(t *testing.T) {
	fail:=func(msg string) Promise {
		return func() (*cube.Cube, error) { return nil, errors.New(msg) }
	}
	_, err:=MaterializeAll([]Promise{fail("boom1"), fail("boom2")}, 2, false)
	if err==nil { t.Fatalf("failing promises did not fail") }
	if !strings.Contains(err.Error(), "boom1") || !strings.Contains(err.Error(), "boom2") {
		t.Errorf("got error %q; want both failure messages", err.Error())
	}
}

type pathTestCase struct {
	Path string
	Want bool
}

func TestIsPathAllowed(t *testing.T) {
	tcs:=[]pathTestCase{
		{"data/cube.fits", true},
		{"cube.fits", true},
		{"../cube.fits", false},
		{"data/../../cube.fits", false},
		{"/etc/passwd", false},
	}
	for _,tc:=range tcs {
		if got:=isPathAllowed(tc.Path); got!=tc.Want {
			t.Errorf("isPathAllowed(%q)=%v; want %v", tc.Path, got, tc.Want)
		}
	}
}

func TestOpSave(t *testing.T) {
	f:=cube.NewCubeFromNaxisn([]int32{3,2,4}, nil)
	f.ID=7
	c:=NewContext(io.Discard)

	fileName:=filepath.Join(t.TempDir(), "out_%d.fits")
	op:=NewOpSave(fileName)
	if _, err:=op.Apply(f, c); err!=nil { t.Fatalf("save: %s", err.Error()) }
	if _, err:=os.Stat(filepath.Join(filepath.Dir(fileName), "out_7.fits")); err!=nil {
		t.Errorf("pattern-expanded output file missing: %s", err.Error())
	}

	op=NewOpSave(filepath.Join(t.TempDir(), "out.txt"))
	if _, err:=op.Apply(f, c); err==nil { t.Errorf("unknown suffix did not fail") }
}

func TestOperatorFactories(t *testing.T) {
	for _,typ:=range []string{"load", "loadMany", "save"} {
		factory:=GetOperatorFactory(typ)
		if factory==nil {
			t.Errorf("no factory registered for %q", typ)
			continue
		}
		if got:=factory().GetType(); got!=typ { t.Errorf("factory for %q builds type %q", typ, got) }
	}
}
