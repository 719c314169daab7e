/*
Copyright © 2019 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package envvars

import (
	"github.com/sirupsen/logrus"
)

// ProcessingEnv holds the settings shared by a chain of operations:
// the cell size and alignment of the outputs and the active mask.
type ProcessingEnv struct {
	// Frame is the frame that inputs are snapped to.
	Frame

	// Mask is the active mask. Results are clipped to it. It may be nil.
	Mask *Mask

	// SR is the spatial reference assigned to outputs.
	SR string

	// Log receives progress messages. It defaults to the
	// logrus standard logger.
	Log logrus.FieldLogger
}

// NewProcessingEnv returns an environment that snaps to the frame of
// template and clips to mask, which may be nil.
func NewProcessingEnv(template *Grid, mask *Mask) (*ProcessingEnv, error) {
	if err := template.validate(); err != nil {
		return nil, err
	}
	if mask != nil {
		if err := mask.check(template.Frame, template.Name); err != nil {
			return nil, err
		}
	}
	return &ProcessingEnv{Frame: template.Frame, Mask: mask, SR: template.SR}, nil
}

func (e *ProcessingEnv) log() logrus.FieldLogger {
	if e == nil || e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

// Snap returns g aligned to the environment's frame using the given
// method. Grids that are already aligned are returned unchanged.
func (e *ProcessingEnv) Snap(g *Grid, method ResampleMethod) (*Grid, error) {
	if g.Frame.Compatible(e.Frame) {
		return g, nil
	}
	e.log().WithFields(logrus.Fields{
		"grid": g.Name,
		"from": g.Frame.String(),
		"to":   e.Frame.String(),
	}).Info("snapping grid to processing frame")
	o, err := Align(g, e.Frame, method)
	if err != nil {
		return nil, err
	}
	if o.SR == "" {
		o.SR = e.SR
	}
	return o, nil
}

// clip clips g to the environment mask, if there is one.
func (e *ProcessingEnv) clip(g *Grid) (*Grid, error) {
	if e == nil || e.Mask == nil {
		return g, nil
	}
	return Clip(g, e.Mask)
}
