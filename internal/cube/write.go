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
	"strings"
)

// Writes an in-memory cube to a FITS file with given filename.
// Compresses with gzip if a .gz or .gzip suffix is present.
// Creates/overwrites the file if necessary
func (c *Cube) WriteFile(fileName string) error {
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()

	lower:=strings.ToLower(fileName)
	if strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".gzip") {
		zw:=gzip.NewWriter(f)
		if err:=c.Write(zw); err!=nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return c.Write(f)
}

// Writes an in-memory cube to an io.Writer as 32-bit floating point FITS.
// Bad values are written as IEEE NaN, which FITS floating point data permits
func (c *Cube) Write(f io.Writer) error {
	sb:=strings.Builder{}
	writeBool (&sb, "SIMPLE", true, "    FITS standard 4.0")
	writeInt32(&sb, "BITPIX", -32, "    32-bit floating point")
	writeInt32(&sb, "NAXIS",  int32(len(c.Naxisn)), "[1] Number of axis")
	for i:=0; i<len(c.Naxisn); i++ {
		writeInt32(&sb, fmt.Sprintf("NAXIS%d",i+1), c.Naxisn[i], "[1] Axis size")
	}
	if c.Wcs!=nil {
		for i:=0; i<len(c.Naxisn) && i<3; i++ {
			writeFloat32(&sb, fmt.Sprintf("CRPIX%d",i+1), c.Wcs.Crpix[i], "[pix] Reference pixel")
			writeFloat32(&sb, fmt.Sprintf("CRVAL%d",i+1), c.Wcs.Crval[i], "Coordinate at reference pixel")
			writeFloat32(&sb, fmt.Sprintf("CDELT%d",i+1), c.Wcs.Cdelt[i], "Coordinate increment")
			if c.Wcs.Ctype[i]!="" {
				writeString(&sb, fmt.Sprintf("CTYPE%d",i+1), c.Wcs.Ctype[i], "Axis type")
			}
		}
		writeFloat32(&sb, "CROTA2", c.Wcs.Crota2, "[deg] Map position angle")
		writeFloat32(&sb, "SCANPA", c.Wcs.ScanPA, "[deg] Scan position angle")
	}
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	bytesInHeaderBlock:=sb.Len() % fitsBlockSize
	if bytesInHeaderBlock>0 {
		for i:=bytesInHeaderBlock; i<fitsBlockSize; i++ {
			sb.WriteRune(' ')
		}
	}

	if _, err:=f.Write([]byte(sb.String())); err!=nil { return err }
	return writeFloat32Array(f, c.Data)
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	v:="F"
	if value { v="T" }
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header int32 value
func writeInt32(w io.Writer, key string, value int32, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header float32 value
func writeFloat32(w io.Writer, key string, value float32, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	fmt.Fprintf(w, "%-8s= %20g / %-47s", key, value, comment)
}

// Writes a FITS header string value. Long values are truncated
func writeString(w io.Writer, key, value, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	value=strings.Join(strings.Split(value, "'"), "''")
	if len(value)>18 { value=value[0:18] }
	fmt.Fprintf(w, "%-8s= '%s'%s / %-47s", key, value, strings.Repeat(" ", 18-len(value)), comment)
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", fitsCardSize-3))
}

// Writes FITS binary body data in network byte order, padded to full blocks
func writeFloat32Array(w io.Writer, data []float32) error {
	buf:=make([]byte, 16*1024)

	written:=0
	for block:=0; block<len(data); block+=len(buf)>>2 {
		size:=len(data)-block
		if size>len(buf)>>2 { size=len(buf)>>2 }

		for offset:=0; offset<size; offset++ {
			val:=math.Float32bits(data[block+offset])
			buf[(offset<<2)+0]=byte(val>>24)
			buf[(offset<<2)+1]=byte(val>>16)
			buf[(offset<<2)+2]=byte(val>> 8)
			buf[(offset<<2)+3]=byte(val    )
		}
		if _, err:=w.Write(buf[:size<<2]); err!=nil { return err }
		written+=size<<2
	}

	// pad data unit to block size
	if rem:=written % fitsBlockSize; rem>0 {
		pad:=make([]byte, fitsBlockSize-rem)
		if _, err:=w.Write(pad); err!=nil { return err }
	}
	return nil
}
