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

// Package gridio reads and writes grids and polygons in the file
// formats used by the envvars tools: Esri ASCII grids (.asc), netCDF
// (.nc, optionally suffixed with #variable), shapefiles (.shp) and
// GeoJSON. Paths may be local or blob storage URLs (gs://, s3://,
// file://) and may contain environment variables.
package gridio

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/envvars"
	"github.com/spatialmodel/envvars/cloud"
	"github.com/spatialmodel/envvars/internal/hash"
)

// splitVariable separates a "file.nc#variable" path into its parts.
func splitVariable(path string) (file, variable string) {
	if i := strings.LastIndex(path, "#"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// withLocal calls f with a local copy of the file at path, downloading
// it first if it is held in blob storage.
func withLocal(ctx context.Context, path string, f func(local string) error) error {
	if !cloud.IsBlob(path) {
		return f(path)
	}
	dir, err := ioutil.TempDir("", "envvars")
	if err != nil {
		return fmt.Errorf("gridio: %v", err)
	}
	defer os.RemoveAll(dir)
	local, err := cloud.Download(ctx, path, dir)
	if err != nil {
		return err
	}
	return f(local)
}

// toDestination calls f with a local path to write to, and uploads
// what was written if path is a blob storage URL.
func toDestination(ctx context.Context, path string, f func(local string) error) error {
	if !cloud.IsBlob(path) {
		return f(path)
	}
	dir, err := ioutil.TempDir("", "envvars")
	if err != nil {
		return fmt.Errorf("gridio: %v", err)
	}
	defer os.RemoveAll(dir)
	local := filepath.Join(dir, filepath.Base(path))
	if err := f(local); err != nil {
		return err
	}
	return cloud.Upload(ctx, local, path)
}

// ReadRaster reads the grid at path.
func ReadRaster(ctx context.Context, path string) (*envvars.Grid, error) {
	file, variable := splitVariable(os.ExpandEnv(path))
	var g *envvars.Grid
	err := withLocal(ctx, file, func(local string) error {
		f, err := os.Open(local)
		if err != nil {
			return fmt.Errorf("gridio: opening raster: %w", err)
		}
		defer f.Close()
		switch ext := strings.ToLower(filepath.Ext(local)); ext {
		case ".asc":
			g, err = ReadASCII(f)
			if err == nil {
				g.Name = strings.TrimSuffix(filepath.Base(local), filepath.Ext(local))
			}
		case ".nc", ".ncf":
			g, err = ReadNetCDF(f, variable)
		default:
			err = fmt.Errorf("gridio: unsupported raster file type %q", ext)
		}
		if err != nil {
			return fmt.Errorf("%v (reading %s)", err, path)
		}
		return nil
	})
	return g, err
}

// WriteRaster writes grids to path. ASCII files hold exactly one grid;
// netCDF files hold any number of grids that share a frame.
func WriteRaster(ctx context.Context, path string, grids ...*envvars.Grid) error {
	path = os.ExpandEnv(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".asc" && len(grids) != 1 {
		return fmt.Errorf("gridio: ASCII grid file %s can hold only one grid but got %d", path, len(grids))
	}
	return toDestination(ctx, path, func(local string) error {
		if dir := filepath.Dir(local); dir != "" {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("gridio: %v", err)
			}
		}
		w, err := os.Create(local)
		if err != nil {
			return fmt.Errorf("gridio: creating raster: %w", err)
		}
		switch ext {
		case ".asc":
			err = WriteASCII(w, grids[0])
		case ".nc", ".ncf":
			err = WriteNetCDF(w, grids...)
		default:
			err = fmt.Errorf("gridio: unsupported raster file type %q", ext)
		}
		if err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
}

// ReadVector reads the polygons at path, reprojecting them to outSR
// as described for ReadPolygons.
func ReadVector(ctx context.Context, path, outSR string) ([]geom.Polygonal, error) {
	var o []geom.Polygonal
	err := withLocal(ctx, os.ExpandEnv(path), func(local string) error {
		var err error
		o, err = ReadPolygons(local, outSR)
		return err
	})
	return o, err
}

// WriteVector writes p to path.
func WriteVector(ctx context.Context, path string, p geom.Polygon, name string) error {
	return toDestination(ctx, os.ExpandEnv(path), func(local string) error {
		return WritePolygon(local, p, name)
	})
}

// Reader reads grids, keeping recently read grids in memory so that
// inputs shared between operations are only read once.
type Reader struct {
	// CacheSize is the number of grids to keep in memory.
	CacheSize int

	Log logrus.FieldLogger

	init  sync.Once
	cache *requestcache.Cache
}

// NewReader returns a Reader that keeps up to cacheSize grids in memory.
func NewReader(cacheSize int) *Reader {
	return &Reader{CacheSize: cacheSize, Log: logrus.StandardLogger()}
}

type rasterRequest struct {
	Path string
}

// Raster returns the grid at path. Concurrent requests for the same
// path share a single read. The returned grid is a copy that the
// caller may modify.
func (r *Reader) Raster(ctx context.Context, path string) (*envvars.Grid, error) {
	r.init.Do(func() {
		size := r.CacheSize
		if size < 1 {
			size = 1
		}
		r.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(rasterRequest)
			if r.Log != nil {
				r.Log.WithField("path", req.Path).Debug("reading raster")
			}
			return ReadRaster(ctx, req.Path)
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(size))
	})
	req := rasterRequest{Path: os.ExpandEnv(path)}
	result, err := r.cache.NewRequest(ctx, req, hash.Key("raster", req)).Result()
	if err != nil {
		return nil, err
	}
	return result.(*envvars.Grid).Copy(), nil
}
