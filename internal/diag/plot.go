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


package diag

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Saves a 1D series, e.g. a receptor edginess profile, as a line plot PNG in
// the diagnostics directory. An optional threshold draws a horizontal cut line
func SaveSeriesPlot(dir, name, title string, series []float32, thresh float32, log io.Writer) {
	if err:=writeSeriesPlot(filepath.Join(dir, name), title, series, thresh); err!=nil {
		fmt.Fprintf(log, "WARNING diagnostic %s: %s\n", name, err.Error())
	}
}

func writeSeriesPlot(fileName, title string, series []float32, thresh float32) error {
	p:=plot.New()
	p.Title.Text=title
	p.X.Label.Text="spectrum index"
	p.Y.Label.Text="edginess"

	pts:=make(plotter.XYs, 0, len(series))
	for i,v:=range series {
		if math.IsNaN(float64(v)) { continue }
		pts=append(pts, plotter.XY{X: float64(i), Y: float64(v)})
	}
	line, err:=plotter.NewLine(pts)
	if err!=nil { return err }
	p.Add(line)

	if !math.IsNaN(float64(thresh)) {
		cut:=plotter.XYs{{X:0, Y:float64(thresh)}, {X:float64(len(series)-1), Y:float64(thresh)}}
		cutLine, err:=plotter.NewLine(cut)
		if err!=nil { return err }
		cutLine.LineStyle.Dashes=[]vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(cutLine)
	}

	if err:=os.MkdirAll(filepath.Dir(fileName), 0755); err!=nil { return err }
	return p.Save(8*vg.Inch, 3*vg.Inch, fileName)
}
