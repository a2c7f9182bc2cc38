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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"
	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/ops"
	"github.com/mlnoga/swclean/internal/ops/rfi"
	"github.com/mlnoga/swclean/internal/ops/sw"
	"github.com/mlnoga/swclean/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out    = flag.String("out", "out.fits", "save output to `file`, %d is replaced by the cube id")
var logF   = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var params = flag.String("params", "", "load recipe parameters from YAML `file`")
var diag   = flag.String("diag", "", "write diagnostic artifacts to `directory`, empty=off")
var moment = flag.String("moment", "", "use precomputed moment map from `file` for the spatial-image mask strategy")

var maskStrategy = flag.String("maskStrategy", "", "emission mask strategy, one of spatial-image, velocity-ranges, volumetric, none")
var maskThresh   = flag.Float64("maskThresh", -1, "intensity cut for the spatial-image mask strategy")
var extents      = flag.String("extents", "", "emission extents as `lo:hi[,lo:hi...]` in velocity or channel units")
var smoothWidths = flag.String("smoothWidths", "", "smoothing window widths for ripple separation, e.g. `5,25,51`")
var interpolate  = flag.Int64("interpolate", -1, "1=fill masked gaps by relaxation, 0=nearest-good substitution only, -1=keep")
var interpWidth  = flag.Int64("interpolateWidth", -1, "interpolation kernel size in channels, 0=auto quarter of gap width, -1=keep")
var refine       = flag.Int64("refine", -1, "1=refine with a volumetric mask in a second pass, 0=single pass, -1=keep")
var refineSource = flag.String("refineSource", "", "cube the refinement mask is built from, one of original, corrected")
var mapPA        = flag.String("mapPA", "", "map position angle in degrees, or `auto` from cube metadata")
var scanPA       = flag.String("scanPA", "", "scan position angle in degrees, or `auto` from cube metadata")

var edgeClip     = flag.String("edgeClip", "", "iterative sigma clipping levels for the flagger noise estimate, non-decreasing, e.g. `2,2,2.5,3`")
var threshClip   = flag.Float64("threshClip", -1, "reject spectra with edginess above this many clipped sigmas")
var dilate       = flag.Int64("dilate", -1, "dilate reject runs by this many spectra on each side, 0-2, -1=keep")
var ringing      = flag.Int64("ringing", -1, "1=detect correlated ringing episodes, 0=off, -1=keep")
var ringingAll   = flag.Int64("ringingAll", -1, "1=apply ringing detection to all receptors, -1=keep")
var ringingRecs  = flag.String("ringingReceptors", "", "comma-separated receptor names with ringing detection enabled, even without -ringing")
var ringingPeak  = flag.Float64("ringingMinPeak", -1, "absolute floor for the ringing peak threshold")
var minSpectra   = flag.Int64("minSpectra", -1, "minimum valid spectra for interference flagging, -1=keep")
var ringingMinSp = flag.Int64("ringingMinSpectra", -1, "minimum valid spectra for ringing detection, -1=keep")
var badReceptors = flag.String("badReceptors", "", "comma-separated receptor names to exclude entirely")
var receptors    = flag.String("receptors", "", "comma-separated receptor names per time-series plane")

var maxThreads   = flag.Int64("maxThreads", 0, "maximum parallel workers, 0=number of CPUs")

var chroot = flag.String("chroot", "", "directory to chroot the REST server into, requires root, empty=off")
var setuid = flag.Int64("setuid", -1, "user id to drop REST server privileges to, -1=off")

func main() {
	logWriter:=io.Writer(os.Stdout)
	start:=time.Now()
	flag.Usage=func(){
		fmt.Fprintf(logWriter, `Swclean Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (clean|flag|stats|serve|legal|version) (cube0.fits ... cuben.fits)

Commands:
  clean   Estimate and subtract standing waves and baselines from PPV cubes
  flag    Detect and blank interference-corrupted spectra in time-series cubes
  stats   Show input cube statistics
  serve   Start the REST server
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *logF=="%auto" {
		if *out!="" {
			*logF=strings.TrimSuffix(*out, filepath.Ext(*out))+".log"
		} else {
			*logF=""
		}
	}
	var logFile *os.File
	if *logF!="" {
		var err error
		logFile, err=os.OpenFile(*logF, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err!=nil {
			fmt.Fprintf(logWriter, "Unable to open logfile '%s'\n", *logF)
			os.Exit(-1)
		}
		defer logFile.Close()
		logWriter=io.MultiWriter(os.Stdout, logFile)
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}

	p, err:=resolveParams()
	if err!=nil {
		fmt.Fprintf(logWriter, "Error resolving parameters: %s\n", err.Error())
		os.Exit(-1)
	}

	ctx:=ops.NewContext(logWriter)
	ctx.DiagDir=p.DiagDir
	if p.MaxThreads>0 { ctx.MaxThreads=p.MaxThreads }
	ctx.Cancel=cancelOnInterrupt(logWriter)

	// run actions
	switch args[0] {
	case "serve":
		rest.MakeSandbox(*chroot, int(*setuid))
		rest.Serve()

	case "clean":
		err=runPipeline(args[1:], sw.NewOpSWClean(p, *moment), ctx)

	case "flag":
		err=runPipeline(args[1:], rfi.NewOpFlag(p, splitList(*receptors)), ctx)

	case "stats":
		err=runPipeline(args[1:], nil, ctx)

	case "legal":
		cmdLegal(logWriter)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	now:=time.Now()
	elapsed:=now.Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f,0); err != nil {
			fmt.Fprintf(logWriter, "Could not write allocation profile: %s\n", err.Error())
			os.Exit(-1)
		}
	}

	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
}

// Globs the file arguments, applies the given operator to each matching cube in
// parallel and saves the results under the output pattern. A nil operator just
// loads the cubes, which prints their statistics
func runPipeline(patterns []string, op ops.Operator, ctx *ops.Context) error {
	promises, err:=ops.NewOpLoadMany(patterns).MakePromises(nil, ctx)
	if err!=nil { return err }
	if op!=nil {
		if promises, err=op.MakePromises(promises, ctx); err!=nil { return err }
		if promises, err=ops.NewOpSave(*out).MakePromises(promises, ctx); err!=nil { return err }
	}
	_, err=ops.MaterializeAll(promises, ctx.MaxThreads, true)
	return err
}

// Resolves recipe parameters: built-in defaults, overridden by the YAML
// parameter file, overridden by the command line flags set by the user
func resolveParams() (*config.Params, error) {
	p:=config.NewParams()
	if *params!="" {
		var err error
		if p, err=config.LoadParams(*params); err!=nil { return nil, err }
	}

	if *maskStrategy!="" { p.EmissionMaskStrategy=*maskStrategy }
	if *maskThresh>=0 { p.EmissionThreshold=float32(*maskThresh) }
	if *extents!="" { p.EmissionExtents=*extents }
	if *smoothWidths!="" {
		widths, err:=parseIntList(*smoothWidths)
		if err!=nil { return nil, fmt.Errorf("invalid smoothWidths %q: %w", *smoothWidths, err) }
		p.SmoothWidths=widths
	}
	if *interpolate>=0 { p.Interpolate=*interpolate!=0 }
	if *interpWidth>=0 { p.InterpolateWidth=int(*interpWidth) }
	if *refine>=0 { p.Refine=*refine!=0 }
	if *refineSource!="" { p.RefineSource=*refineSource }
	if *mapPA!="" { p.MapPositionAngle=*mapPA }
	if *scanPA!="" { p.ScanPositionAngle=*scanPA }

	if *edgeClip!="" {
		clips, err:=parseFloatList(*edgeClip)
		if err!=nil { return nil, fmt.Errorf("invalid edgeClip %q: %w", *edgeClip, err) }
		p.EdgeClip=clips
	}
	if *threshClip>=0 { p.ThreshClip=float32(*threshClip) }
	if *dilate>=0 { p.Dilate=int(*dilate) }
	if *ringing>=0 { p.Ringing=*ringing!=0 }
	if *ringingAll>=0 { p.RingingAllReceptors=*ringingAll!=0 }
	if *ringingRecs!="" { p.RingingReceptors=splitList(*ringingRecs) }
	if *ringingPeak>=0 { p.RingingMinPeak=float32(*ringingPeak) }
	if *minSpectra>=0 { p.MinSpectra=int(*minSpectra) }
	if *ringingMinSp>=0 { p.RingingMinSpectra=int(*ringingMinSp) }
	if *badReceptors!="" { p.BadReceptors=splitList(*badReceptors) }

	if *diag!="" { p.DiagDir=*diag }
	if *maxThreads>0 { p.MaxThreads=int(*maxThreads) }

	if err:=p.Validate(); err!=nil { return nil, err }
	return p, nil
}

// Returns a channel that is closed on the first interrupt signal, for
// cooperative cancellation between cubes and passes
func cancelOnInterrupt(logWriter io.Writer) <-chan struct{} {
	cancel:=make(chan struct{})
	sig:=make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		fmt.Fprintf(logWriter, "\nInterrupted, finishing current kernel call...\n")
		close(cancel)
		signal.Stop(sig)
	}()
	return cancel
}

func splitList(s string) []string {
	if strings.TrimSpace(s)=="" { return nil }
	parts:=strings.Split(s, ",")
	for i:=range parts {
		parts[i]=strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntList(s string) ([]int, error) {
	res:=[]int{}
	for _,part:=range splitList(s) {
		v, err:=strconv.Atoi(part)
		if err!=nil { return nil, err }
		res=append(res, v)
	}
	return res, nil
}

func parseFloatList(s string) ([]float32, error) {
	res:=[]float32{}
	for _,part:=range splitList(s) {
		v, err:=strconv.ParseFloat(part, 32)
		if err!=nil { return nil, err }
		res=append(res, float32(v))
	}
	return res, nil
}
