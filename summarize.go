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
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// joinName joins the non-empty parts of an output name with underscores.
func joinName(parts ...string) string {
	var o []string
	for _, p := range parts {
		if p != "" {
			o = append(o, p)
		}
	}
	return strings.Join(o, "_")
}

// layerName is the name of a layer within output names.
func layerName(g *Grid) string {
	if g.Class != NoClass {
		return g.Class.String()
	}
	return g.Name
}

// Reclassify remaps src with every table of scheme, producing one grid
// per class named <prefix>_<class> and tagged with its class. If env
// is not nil, src is snapped to the environment frame and the results
// are clipped to the environment mask. Classes are processed
// concurrently.
func Reclassify(ctx context.Context, src *Grid, scheme *Scheme, prefix string, mode RemapMode, outside float64, env *ProcessingEnv) ([]*Grid, error) {
	if env != nil {
		var err error
		if src, err = env.Snap(src, Nearest); err != nil {
			return nil, err
		}
	}
	out := make([]*Grid, len(scheme.Tables))
	eg, ctx := errgroup.WithContext(ctx)
	for i, t := range scheme.Tables {
		i, t := i, t
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := Remap(src, t, mode, outside)
			if err != nil {
				return err
			}
			if r, err = env.clip(r); err != nil {
				return err
			}
			r.Name = joinName(prefix, t.Class.String())
			out[i] = r
			env.log().WithFields(logrus.Fields{
				"scheme": scheme.Name,
				"class":  t.Class.String(),
				"output": r.Name,
			}).Debug("reclassified")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summarizer computes multi-scale neighborhood means of land-cover layers.
type Summarizer struct {
	// Scales are the neighborhoods to summarize over. Nil means DefaultScales.
	Scales []Kernel

	// Prefix is prepended to output names.
	Prefix string

	// Log receives progress messages. It defaults to the logrus
	// standard logger.
	Log logrus.FieldLogger
}

func (s *Summarizer) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Aggregate calculates FocalMean for every combination of layer and
// scale. Results are named <prefix>_mean_<layer>_<scale> and ordered by
// layer and then by scale. The combinations are independent and are
// computed concurrently.
func (s *Summarizer) Aggregate(ctx context.Context, layers []*Grid, mask *Mask) ([]*Grid, error) {
	scales := s.Scales
	if scales == nil {
		scales = DefaultScales
	}
	for _, l := range layers {
		for _, k := range scales {
			if _, err := k.Offsets(l.CellSize); err != nil {
				return nil, err
			}
		}
		if mask != nil {
			if err := mask.check(l.Frame, l.Name); err != nil {
				return nil, err
			}
		}
	}
	out := make([]*Grid, len(layers)*len(scales))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, l := range layers {
		for j, k := range scales {
			i, j, l, k := i, j, l, k
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				r, err := FocalMean(l, k, mask)
				if err != nil {
					return err
				}
				r.Name = joinName(s.Prefix, "mean", layerName(l), k.Token())
				out[i*len(scales)+j] = r
				s.log().WithFields(logrus.Fields{
					"layer":    layerName(l),
					"kernel":   k.String(),
					"output":   r.Name,
					"walltime": time.Since(start).String(),
				}).Info("aggregated")
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Aggregate calculates FocalMean for every combination of layer and
// scale using a Summarizer with the given scales and prefix.
func Aggregate(ctx context.Context, layers []*Grid, scales []Kernel, mask *Mask, prefix string) ([]*Grid, error) {
	s := &Summarizer{Scales: scales, Prefix: prefix}
	return s.Aggregate(ctx, layers, mask)
}
