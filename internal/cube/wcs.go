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

// Pixel-to-world coordinate mapping for up to three axes, plus the scan geometry
// angles of the observation. Angles are in degrees, east of north.
type Wcs struct {
	Crpix [3]float32   // Reference pixel, 1-based per FITS convention
	Crval [3]float32   // World coordinate at the reference pixel
	Cdelt [3]float32   // World coordinate increment per pixel
	Ctype [3]string    // Axis type labels

	Crota2 float32     // Map position angle: orientation of the grid vs the tracking frame
	ScanPA float32     // Scan position angle: orientation of the physical scan direction
}

// Returns a deep copy of the mapping, or nil for a nil receiver
func (w *Wcs) Clone() *Wcs {
	if w==nil { return nil }
	res:=*w
	return &res
}

// Returns the world coordinate of the given 0-based spectral channel
func (w *Wcs) ChannelToWorld(channel int32) float32 {
	return w.Crval[2] + (float32(channel)+1-w.Crpix[2])*w.Cdelt[2]
}

// Returns the 0-based spectral channel containing the given world coordinate
func (w *Wcs) WorldToChannel(world float32) int32 {
	return int32((world-w.Crval[2])/w.Cdelt[2] + w.Crpix[2] - 1 + 0.5)
}

// Returns a copy of the mapping rotated by the given angle about the spatial axes.
// Only the orientation angles change; the reference pixel of a rotated-and-trimmed
// cube must be restored by the caller via reattachment from the source cube
func (w *Wcs) RotateBy(angle float32) *Wcs {
	if w==nil { return nil }
	res:=*w
	res.Crota2+=angle
	res.ScanPA+=angle
	return &res
}
