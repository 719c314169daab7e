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

package gridio

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
)

// ReadPolygons reads the polygons in a local shapefile (.shp) or
// GeoJSON (.geojson or .json) file. If outSR is not empty and the file
// is a shapefile with a projection (.prj) file, the polygons are
// reprojected to outSR. GeoJSON polygons are assumed to already be in
// the output projection.
func ReadPolygons(path, outSR string) ([]geom.Polygonal, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShpPolygons(path, outSR)
	case ".geojson", ".json":
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("gridio: reading polygon file: %w", err)
		}
		p, err := DecodePolygon(b)
		if err != nil {
			return nil, fmt.Errorf("gridio: %s: %w", path, err)
		}
		return []geom.Polygonal{p}, nil
	default:
		return nil, fmt.Errorf("gridio: unsupported polygon file type %q", path)
	}
}

// DecodePolygon decodes a GeoJSON Polygon or MultiPolygon.
// The rings of a MultiPolygon are merged into a single polygon.
func DecodePolygon(b []byte) (geom.Polygon, error) {
	j, err := geojson.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding GeoJSON: %w", err)
	}
	switch p := j.(type) {
	case geom.Polygon:
		return p, nil
	case geom.MultiPolygon:
		var o geom.Polygon
		for _, pp := range p {
			o = append(o, pp...)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid polygon geometry type %T", j)
	}
}

func readShpPolygons(path, outSR string) ([]geom.Polygonal, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("gridio: opening shapefile: %w", err)
	}
	defer d.Close()
	var ct proj.Transformer
	if outSR != "" {
		if inSR, err := d.SR(); err == nil {
			dst, err := proj.Parse(outSR)
			if err != nil {
				return nil, fmt.Errorf("gridio: parsing spatial reference %q: %w", outSR, err)
			}
			if ct, err = inSR.NewTransform(dst); err != nil {
				return nil, fmt.Errorf("gridio: shapefile %s: %w", path, err)
			}
		}
	}
	var o []geom.Polygonal
	for {
		var rec struct{ geom.Geom }
		if more := d.DecodeRow(&rec); !more {
			break
		}
		p, ok := rec.Geom.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("gridio: shapefile %s: invalid geometry type %T", path, rec.Geom)
		}
		if ct != nil {
			g, err := p.Transform(ct)
			if err != nil {
				return nil, fmt.Errorf("gridio: reprojecting shapefile %s: %w", path, err)
			}
			p = g.(geom.Polygonal)
		}
		o = append(o, p)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("gridio: reading shapefile %s: %w", path, err)
	}
	return o, nil
}

// WritePolygon writes p with the given name attribute to a local
// shapefile or GeoJSON file, depending on the extension of path.
func WritePolygon(path string, p geom.Polygon, name string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		e, err := shp.NewEncoderFromFields(path, goshp.POLYGON,
			goshp.StringField("Name", 50), goshp.FloatField("Area", 24, 3))
		if err != nil {
			return fmt.Errorf("gridio: creating shapefile: %w", err)
		}
		defer e.Close()
		if err = e.EncodeFields(p, name, p.Area()); err != nil {
			return fmt.Errorf("gridio: writing shapefile: %w", err)
		}
		return nil
	case ".geojson", ".json":
		b, err := geojson.Encode(p)
		if err != nil {
			return fmt.Errorf("gridio: encoding GeoJSON: %w", err)
		}
		if err = ioutil.WriteFile(path, b, 0644); err != nil {
			return fmt.Errorf("gridio: writing GeoJSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("gridio: unsupported polygon file type %q", path)
	}
}
