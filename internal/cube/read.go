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


package cube

import (
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strconv"
	"strings"
)

const fitsBlockSize   = 2880 // block size of FITS header and data units
const fitsCardSize    = 80   // line size of a FITS header card

// Reads a PPV cube from a FITS file with the given name, decompressing gzip if
// the suffix indicates so
func NewCubeFromFile(fileName string, id int, logWriter io.Writer) (*Cube, error) {
	f, err:=os.Open(fileName)
	if err!=nil { return nil, err }
	defer f.Close()

	var r io.Reader=f
	ext:=strings.ToLower(path.Ext(fileName))
	if ext==".gz" || ext==".gzip" {
		r, err=gzip.NewReader(f)
		if err!=nil { return nil, err }
	}

	c:=&Cube{ID:id, FileName:fileName}
	if err:=c.Read(r); err!=nil { return nil, err }
	fmt.Fprintf(logWriter, "%d: Loaded %s cube from %s\n", c.ID, c.DimensionsToString(), c.FileName)
	return c, nil
}

// Reads a cube from FITS data on the given reader
func (c *Cube) Read(r io.Reader) error {
	h, err:=readHeader(r)
	if err!=nil { return err }
	if !h.simple { return fmt.Errorf("not a valid FITS file; SIMPLE=T missing in header") }

	c.Naxisn=make([]int32, h.naxis)
	c.Pixels=int32(1)
	for i:=0; i<int(h.naxis); i++ {
		c.Naxisn[i]=h.naxisn[i]
		c.Pixels*=h.naxisn[i]
	}
	c.Wcs=h.wcs()

	switch h.bitpix {
	case -32:
		return c.readFloat32Data(r)
	case 16:
		return c.readInt16Data(r, h.bzero, h.bscale)
	default:
		return fmt.Errorf("unsupported BITPIX value %d", h.bitpix)
	}
}

// Parsed FITS header fields relevant for PPV cubes
type header struct {
	simple  bool
	bitpix  int32
	naxis   int32
	naxisn  [3]int32
	bzero   float32
	bscale  float32
	crpix   [3]float32
	crval   [3]float32
	cdelt   [3]float32
	ctype   [3]string
	crota2  float32
	scanpa  float32
	hasWcs  bool
}

func (h *header) wcs() *Wcs {
	if !h.hasWcs { return nil }
	return &Wcs{Crpix:h.crpix, Crval:h.crval, Cdelt:h.cdelt, Ctype:h.ctype, Crota2:h.crota2, ScanPA:h.scanpa}
}

// Reads FITS header blocks up to and including the END card
func readHeader(r io.Reader) (*header, error) {
	h:=&header{bscale:1}
	block:=make([]byte, fitsBlockSize)
	for {
		if _, err:=io.ReadFull(r, block); err!=nil { return nil, err }
		for card:=0; card<fitsBlockSize; card+=fitsCardSize {
			key, value:=parseCard(block[card:card+fitsCardSize])
			if key=="END" { return h, nil }
			if err:=h.apply(key, value); err!=nil { return nil, err }
		}
	}
}

// Splits a header card into its key and raw value, dropping any comment
func parseCard(card []byte) (key, value string) {
	line:=string(card)
	key=strings.TrimSpace(line[0:8])
	if len(line)<10 || line[8:10]!="= " { return key, "" }
	value=line[10:]
	if strings.HasPrefix(strings.TrimSpace(value), "'") {
		// string value, comment starts after closing quote
		if end:=strings.Index(strings.TrimSpace(value)[1:], "'"); end>=0 {
			value=strings.TrimSpace(value)
			value=value[1:end+1]
			return key, value
		}
	}
	if slash:=strings.Index(value, "/"); slash>=0 {
		value=value[:slash]
	}
	return key, strings.TrimSpace(value)
}

func (h *header) apply(key, value string) error {
	axisIndex:=func(prefix string) int {
		i, err:=strconv.Atoi(key[len(prefix):])
		if err!=nil || i<1 || i>3 { return -1 }
		return i-1
	}
	parseF:=func() (float32, error) {
		v, err:=strconv.ParseFloat(value, 64)
		if err!=nil { return 0, fmt.Errorf("malformed value %q for header key %s", value, key) }
		return float32(v), nil
	}

	var err error
	var v float32
	switch {
	case key=="SIMPLE":
		h.simple= value=="T"
	case key=="BITPIX":
		v, err=parseF()
		h.bitpix=int32(v)
	case key=="NAXIS":
		v, err=parseF()
		h.naxis=int32(v)
		if h.naxis<1 || h.naxis>3 { return fmt.Errorf("unsupported NAXIS value %d", h.naxis) }
	case strings.HasPrefix(key, "NAXIS"):
		if i:=axisIndex("NAXIS"); i>=0 {
			v, err=parseF()
			h.naxisn[i]=int32(v)
		}
	case key=="BZERO":
		h.bzero, err=parseF()
	case key=="BSCALE":
		h.bscale, err=parseF()
	case strings.HasPrefix(key, "CRPIX"):
		if i:=axisIndex("CRPIX"); i>=0 {
			h.crpix[i], err=parseF()
			h.hasWcs=true
		}
	case strings.HasPrefix(key, "CRVAL"):
		if i:=axisIndex("CRVAL"); i>=0 {
			h.crval[i], err=parseF()
			h.hasWcs=true
		}
	case strings.HasPrefix(key, "CDELT"):
		if i:=axisIndex("CDELT"); i>=0 {
			h.cdelt[i], err=parseF()
			h.hasWcs=true
		}
	case strings.HasPrefix(key, "CTYPE"):
		if i:=axisIndex("CTYPE"); i>=0 {
			h.ctype[i]=value
			h.hasWcs=true
		}
	case key=="CROTA2":
		h.crota2, err=parseF()
		h.hasWcs=true
	case key=="SCANPA":
		h.scanpa, err=parseF()
		h.hasWcs=true
	}
	return err
}

// Batched read of float32 data, converting from network byte order
func (c *Cube) readFloat32Data(r io.Reader) error {
	c.Data=make([]float32, int(c.Pixels))
	buf:=make([]byte, 16*1024)

	dataIndex:=0
	for dataIndex<len(c.Data) {
		bytesToRead:=(len(c.Data)-dataIndex)*4
		if bytesToRead>len(buf) { bytesToRead=len(buf) }
		if _, err:=io.ReadFull(r, buf[:bytesToRead]); err!=nil { return err }

		for i:=0; i<bytesToRead; i+=4 {
			bits:=(uint32(buf[i])<<24) | (uint32(buf[i+1])<<16) | (uint32(buf[i+2])<<8) | uint32(buf[i+3])
			c.Data[dataIndex+(i>>2)]=math.Float32frombits(bits)
		}
		dataIndex+=bytesToRead>>2
	}
	return nil
}

// Batched read of int16 data, converting from network byte order and applying
// the BZERO offset and BSCALE scaling on the fly
func (c *Cube) readInt16Data(r io.Reader, bzero, bscale float32) error {
	c.Data=make([]float32, int(c.Pixels))
	buf:=make([]byte, 16*1024)

	dataIndex:=0
	for dataIndex<len(c.Data) {
		bytesToRead:=(len(c.Data)-dataIndex)*2
		if bytesToRead>len(buf) { bytesToRead=len(buf) }
		if _, err:=io.ReadFull(r, buf[:bytesToRead]); err!=nil { return err }

		for i:=0; i<bytesToRead; i+=2 {
			val:=int16((uint16(buf[i])<<8) | uint16(buf[i+1]))
			c.Data[dataIndex+(i>>1)]=float32(val)*bscale + bzero
		}
		dataIndex+=bytesToRead>>1
	}
	return nil
}
