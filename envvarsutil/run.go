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

package envvarsutil

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/envvars"
	"github.com/spatialmodel/envvars/gridio"
)

// ReclassifyConfig holds the inputs of a land cover reclassification.
type ReclassifyConfig struct {
	// NLCD is the path to the classified land cover raster.
	NLCD string

	// Scheme is the classification scheme of NLCD.
	Scheme *envvars.Scheme

	// Impervious and Canopy are paths to optional continuous land
	// cover rasters.
	Impervious, Canopy string

	// Extent is the path to an optional study area polygon file, and
	// ExtentBuffer is the distance it is grown by before clipping
	// the inputs [map units].
	Extent       string
	ExtentBuffer float64

	// Mask is the path to an optional mask raster.
	Mask string

	// Lenient sets codes outside of Scheme to missing rather than
	// returning an error.
	Lenient bool

	Scales []envvars.Kernel
	Prefix string
}

// Reclassify splits the NLCD raster into one layer per class of the
// classification scheme and summarizes the layers and the impervious
// surface and canopy rasters at each of the configured scales.
// Both the layers and their summaries are written to out.
func Reclassify(ctx context.Context, r *gridio.Reader, c *ReclassifyConfig, out output) error {
	start := time.Now()
	log := logrus.WithField("command", "reclassify")
	if c.NLCD == "" {
		return fmt.Errorf("envvars: NLCD is not specified")
	}
	nlcd, err := r.Raster(ctx, c.NLCD)
	if err != nil {
		return err
	}
	nlcd.Name = "nlcd"

	var extent, buffered geom.Polygon
	if c.Extent != "" {
		polys, err := gridio.ReadVector(ctx, c.Extent, nlcd.SR)
		if err != nil {
			return err
		}
		extent = mergePolygons(polys)
		buffered = envvars.BufferPolygon(extent, c.ExtentBuffer)
		log.WithFields(logrus.Fields{
			"extent": c.Extent,
			"buffer": c.ExtentBuffer,
		}).Info("buffered study area")
	}

	var mask *envvars.Mask
	if c.Mask != "" {
		if mask, err = readMask(ctx, r, c.Mask, nlcd.Frame); err != nil {
			return err
		}
	} else {
		m := nlcd
		if extent != nil {
			if m, err = envvars.ClipToPolygon(nlcd, extent); err != nil {
				return err
			}
		}
		mask = envvars.LandCoverMask(m)
	}

	clean := nlcd
	if buffered != nil {
		if clean, err = envvars.ClipToPolygon(nlcd, buffered); err != nil {
			return err
		}
	}
	clean = envvars.SetNull(clean, func(v float64) bool { return v == 0 })
	env, err := envvars.NewProcessingEnv(clean, nil)
	if err != nil {
		return err
	}
	env.Log = log

	mode := envvars.Strict
	if c.Lenient {
		mode = envvars.Lenient
	}
	classes, err := envvars.Reclassify(ctx, clean, c.Scheme, c.Prefix, mode, clean.NoData, env)
	if err != nil {
		return err
	}
	layers := append([]*envvars.Grid{}, classes...)

	landCover := envvars.MaskFromGrid(clean)
	for _, aux := range []struct {
		path  string
		class envvars.LandCoverClass
	}{
		{path: c.Impervious, class: envvars.Impervious},
		{path: c.Canopy, class: envvars.Canopy},
	} {
		if aux.path == "" {
			continue
		}
		g, err := r.Raster(ctx, aux.path)
		if err != nil {
			return err
		}
		if g, err = env.Snap(g, envvars.Nearest); err != nil {
			return err
		}
		if g, err = envvars.Clip(g, landCover); err != nil {
			return err
		}
		if aux.class == envvars.Impervious {
			g = envvars.PrepareImpervious(g)
		} else {
			g.Class = aux.class
		}
		g.Name = aux.class.String()
		layers = append(layers, g)
	}

	s := &envvars.Summarizer{Scales: c.Scales, Prefix: c.Prefix, Log: log}
	means, err := s.Aggregate(ctx, layers, mask)
	if err != nil {
		return err
	}
	if err := writeGrids(ctx, out, c.Prefix, append(classes, means...)); err != nil {
		return err
	}
	log.WithField("walltime", time.Since(start).String()).Info("finished")
	return nil
}

// Aggregate summarizes the rasters in layers, a map of layer names to
// file paths, at each of the given scales. Layer names that are land
// cover classes tag the layer with that class. If maskPath is not
// empty, outputs are restricted to the cells of that raster that hold
// data.
func Aggregate(ctx context.Context, r *gridio.Reader, layers map[string]string, maskPath string, scales []envvars.Kernel, prefix string, out output) error {
	if len(layers) == 0 {
		return fmt.Errorf("envvars: no Layers are specified")
	}
	names := make([]string, 0, len(layers))
	for n := range layers {
		names = append(names, n)
	}
	sort.Strings(names)

	var env *envvars.ProcessingEnv
	grids := make([]*envvars.Grid, len(names))
	for i, n := range names {
		g, err := r.Raster(ctx, layers[n])
		if err != nil {
			return err
		}
		g.Name = n
		if c, err := envvars.ParseLandCoverClass(n); err == nil {
			g.Class = c
		}
		if env == nil {
			if env, err = envvars.NewProcessingEnv(g, nil); err != nil {
				return err
			}
		} else if g, err = env.Snap(g, envvars.Nearest); err != nil {
			return err
		}
		grids[i] = g
	}
	var mask *envvars.Mask
	if maskPath != "" {
		var err error
		if mask, err = readMask(ctx, r, maskPath, env.Frame); err != nil {
			return err
		}
	}
	s := &envvars.Summarizer{Scales: scales, Prefix: prefix, Log: logrus.WithField("command", "aggregate")}
	means, err := s.Aggregate(ctx, grids, mask)
	if err != nil {
		return err
	}
	return writeGrids(ctx, out, prefix, means)
}

// Fill fills the gaps in the input raster within the template raster,
// optionally restricted to the polygons in clipPath, and writes the
// result to output.
func Fill(ctx context.Context, r *gridio.Reader, input, template, clipPath, output string, cfg envvars.FillConfig) error {
	if input == "" || template == "" {
		return fmt.Errorf("envvars: both Input and Template must be specified")
	}
	src, err := r.Raster(ctx, input)
	if err != nil {
		return err
	}
	tmpl, err := r.Raster(ctx, template)
	if err != nil {
		return err
	}
	var clip geom.Polygonal
	if clipPath != "" {
		polys, err := gridio.ReadVector(ctx, clipPath, tmpl.SR)
		if err != nil {
			return err
		}
		clip = mergePolygons(polys)
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	cfg.Log = cfg.Log.WithFields(logrus.Fields{"command": "fill", "input": input})
	o, err := envvars.FillRaster(ctx, src, tmpl, clip, cfg)
	if err != nil {
		return err
	}
	return gridio.WriteRaster(ctx, output, o)
}

// Finalize converts the input raster to scaled integers, optionally
// within the cells of the mask raster, and writes the result to output.
// If expression is not empty it is used instead of the default
// conversion, with the input available as 'value' and the multiplier
// as 'mult'.
func Finalize(ctx context.Context, r *gridio.Reader, input, maskPath string, mult float64, expression, output string) error {
	if input == "" {
		return fmt.Errorf("envvars: Input is not specified")
	}
	g, err := r.Raster(ctx, input)
	if err != nil {
		return err
	}
	var mask *envvars.Mask
	if maskPath != "" {
		m, err := r.Raster(ctx, maskPath)
		if err != nil {
			return err
		}
		env, err := envvars.NewProcessingEnv(m, envvars.MaskFromGrid(m))
		if err != nil {
			return err
		}
		if g, err = env.Snap(g, envvars.Nearest); err != nil {
			return err
		}
		mask = env.Mask
	}
	var o *envvars.Grid
	if expression == "" {
		o, err = envvars.Finalize(g, mult, mask)
	} else {
		o, err = envvars.Evaluate(expression, map[string]*envvars.Grid{"value": g},
			map[string]float64{"mult": mult}, mask)
	}
	if err != nil {
		return err
	}
	return gridio.WriteRaster(ctx, output, o)
}

// Domain writes the outline of the cells of the input raster that hold
// data, grown by buffer, to output.
func Domain(ctx context.Context, r *gridio.Reader, input string, buffer float64, output string) error {
	g, err := r.Raster(ctx, input)
	if err != nil {
		return err
	}
	p := envvars.DomainPolygon(g)
	if p == nil {
		return fmt.Errorf("envvars: %s holds no data", input)
	}
	if buffer > 0 {
		p = envvars.BufferPolygon(p, buffer)
	}
	return gridio.WriteVector(ctx, output, p, g.Name)
}

// readMask reads the raster at path and returns the mask of its cells
// that hold data, within frame f.
func readMask(ctx context.Context, r *gridio.Reader, path string, f envvars.Frame) (*envvars.Mask, error) {
	m, err := r.Raster(ctx, path)
	if err != nil {
		return nil, err
	}
	if m, err = envvars.Align(m, f, envvars.Nearest); err != nil {
		return nil, err
	}
	return envvars.MaskFromGrid(m), nil
}

// mergePolygons returns the union of polys, so that areas where they
// overlap stay inside of the result.
func mergePolygons(polys []geom.Polygonal) geom.Polygon {
	return envvars.UnionPolygons(polys...)
}

// writeGrids writes grids to out, either one file per grid or a single
// netCDF file named after prefix.
func writeGrids(ctx context.Context, out output, prefix string, grids []*envvars.Grid) error {
	if out.Format == "nc" {
		name := prefix
		if name == "" {
			name = "envvars"
		}
		return gridio.WriteRaster(ctx, out.path(name+".nc"), grids...)
	}
	for _, g := range grids {
		if err := gridio.WriteRaster(ctx, out.path(g.Name+".asc"), g); err != nil {
			return err
		}
		logrus.WithField("file", out.path(g.Name+".asc")).Debug("wrote grid")
	}
	return nil
}
