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


package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"github.com/gin-gonic/gin"

	"github.com/mlnoga/swclean/internal/config"
	"github.com/mlnoga/swclean/internal/cube"
	"github.com/mlnoga/swclean/internal/ops"
	"github.com/mlnoga/swclean/internal/ops/rfi"
	"github.com/mlnoga/swclean/internal/ops/sw"
)


func Serve() {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping",       getPing)
			v1.POST("/clean",      postClean)
			v1.POST("/flagreport", postFlagReport)
		}
	}
	r.Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m,err:=json.MarshalIndent(args, "", "  ")
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

type postCleanArgs struct {
	FilePatterns []string      `json:"filePatterns"`
	SWClean      *sw.OpSWClean `json:"swClean"`
	OutPattern   string        `json:"outPattern"`
}

func postClean(c *gin.Context)  {
	logWriter := c.Writer
	var args postCleanArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err:=printArgs(logWriter, "Arguments:\n", "\n", args); err!=nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx:=ops.NewContext(logWriter)
	opClean:=args.SWClean
	if opClean==nil { opClean=sw.NewOpSWCleanDefault() }
	if opClean.Params!=nil {
		ctx.DiagDir=opClean.Params.DiagDir
		if opClean.Params.MaxThreads>0 { ctx.MaxThreads=opClean.Params.MaxThreads }
	}

	// glob filename arguments into load operators
	promises, err:=ops.NewOpLoadMany(args.FilePatterns).MakePromises(nil, ctx)
	if err!=nil {
		fmt.Fprintf(logWriter, "Error globbing filenames: %s\n", err.Error())
		return
	}
	if promises, err=opClean.MakePromises(promises, ctx); err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}
	if args.OutPattern!="" {
		if promises, err=ops.NewOpSave(args.OutPattern).MakePromises(promises, ctx); err!=nil {
			fmt.Fprintf(logWriter, "error: %s\n", err.Error())
			return
		}
	}
	if _, err=ops.MaterializeAll(promises, ctx.MaxThreads, true); err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()
}

type postFlagReportArgs struct {
	FileName  string         `json:"fileName"`
	Params    *config.Params `json:"params"`
	Receptors []string       `json:"receptors"`
}

func postFlagReport(c *gin.Context) {
	var args postFlagReportArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	p:=args.Params
	if p==nil { p=config.NewParams() }
	if err:=p.Validate(); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	ctx:=ops.NewContext(io.Discard)
	f, err:=cube.NewCubeFromFile(args.FileName, 0, ctx.Log)
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	results, err:=rfi.FlagCube(f, args.Receptors, p, ctx)
	if err!=nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error() } )
		return
	}
	c.JSON(http.StatusOK, gin.H{"fileName": args.FileName, "receptors": results})
}
