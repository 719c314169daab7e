/*
Copyright © 2013 the InMAP authors.
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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/envvars"
	"github.com/spatialmodel/envvars/cloud"
	"github.com/spatialmodel/envvars/gridio"
	"github.com/spf13/cast"
)

var (
	// logFile is the open log file, if any.
	logFile *os.File
	// logDest is where logFile is uploaded to when logging finishes,
	// if the LogFile option is a blob storage URL.
	logDest string
)

// setLog sets the level and destination of log messages.
func setLog(ctx context.Context, w io.Writer, level, file string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("envvars: invalid LogLevel: %v", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(w)
	if err := closeLog(); err != nil {
		return err
	}
	file = os.ExpandEnv(file)
	if file == "" {
		return nil
	}
	local := file
	if cloud.IsBlob(file) {
		f, err := ioutil.TempFile("", "envvars_log")
		if err != nil {
			return fmt.Errorf("envvars: creating log file: %v", err)
		}
		logFile, logDest = f, file
	} else {
		if logFile, err = os.Create(local); err != nil {
			return fmt.Errorf("envvars: creating log file: %v", err)
		}
	}
	logrus.SetOutput(io.MultiWriter(w, logFile))
	return nil
}

// closeLog closes the log file, uploading it if necessary.
func closeLog() error {
	if logFile == nil {
		return nil
	}
	f, dest := logFile, logDest
	logFile, logDest = nil, ""
	logrus.SetOutput(os.Stderr)
	if err := f.Close(); err != nil {
		return fmt.Errorf("envvars: closing log file: %v", err)
	}
	if dest == "" {
		return nil
	}
	defer os.Remove(f.Name())
	return cloud.Upload(context.Background(), f.Name(), dest)
}

// newReader returns a grid reader configured from Cfg.
func newReader() *gridio.Reader {
	r := gridio.NewReader(Cfg.GetInt("CacheSize"))
	r.Log = logrus.StandardLogger()
	return r
}

// loadScheme returns the classification scheme in file, if it is set,
// or the built-in scheme with the given name.
func loadScheme(ctx context.Context, name, file string) (*envvars.Scheme, error) {
	if file == "" {
		return envvars.SchemeByName(name)
	}
	var b []byte
	var err error
	if cloud.IsBlob(file) {
		b, err = cloud.ReadBlob(ctx, file)
	} else {
		b, err = ioutil.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("envvars: reading SchemeFile: %w", err)
	}
	s, err := envvars.LoadScheme(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("envvars: SchemeFile %s: %v", file, err)
	}
	return s, nil
}

// parseScales parses neighborhood specifications.
func parseScales(s []string) ([]envvars.Kernel, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("envvars: no Scales are specified")
	}
	o := make([]envvars.Kernel, len(s))
	for i, v := range s {
		k, err := envvars.ParseKernel(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("envvars: Scales: %v", err)
		}
		o[i] = k
	}
	return o, nil
}

// output describes where a set of grids is written.
type output struct {
	Dir    string
	Format string // asc or nc
}

// checkOutput expands environment variables in the output directory and
// checks that the output format is valid.
func checkOutput(dir, format string) (output, error) {
	o := output{Dir: os.ExpandEnv(dir), Format: strings.TrimPrefix(strings.ToLower(format), ".")}
	if o.Dir == "" {
		return o, fmt.Errorf("envvars: OutputDir is not specified")
	}
	if o.Format != "asc" && o.Format != "nc" {
		return o, fmt.Errorf("envvars: OutputFormat must be asc or nc but is %q", format)
	}
	if !cloud.IsBlob(o.Dir) {
		if err := os.MkdirAll(o.Dir, os.ModePerm); err != nil {
			return o, fmt.Errorf("envvars: creating OutputDir: %v", err)
		}
	}
	return o, nil
}

// path returns the location of a file within the output directory.
func (o output) path(name string) string {
	if cloud.IsBlob(o.Dir) {
		return strings.TrimSuffix(o.Dir, "/") + "/" + name
	}
	return filepath.Join(o.Dir, name)
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("envvars: you need to specify an output file (for example: --Output=output.asc)")
	}
	f = os.ExpandEnv(f)
	if cloud.IsBlob(f) {
		bucket, _, err := cloud.SplitURL(f)
		if err != nil {
			return f, err
		}
		b, err := cloud.OpenBucket(context.Background(), bucket)
		if err != nil {
			return f, fmt.Errorf("envvars: error when checking Output location: %v", err)
		}
		return f, b.Close()
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("envvars: the Output directory doesn't exist: %v", err)
	}
	return f, nil
}

// fillConfig reads gap-filling settings from cfg.
func fillConfig(cfg *viper.Viper) (envvars.FillConfig, error) {
	c := envvars.DefaultFillConfig()
	var err error
	if c.Mode, err = envvars.ParseFillMode(cfg.GetString("Mode")); err != nil {
		return c, err
	}
	if c.Statistic, err = envvars.ParseStatistic(cfg.GetString("Statistic")); err != nil {
		return c, err
	}
	c.Margin = cfg.GetFloat64("Margin")
	c.InitialRadius = cfg.GetFloat64("InitialRadius")
	c.Growth = cfg.GetFloat64("Growth")
	c.MaxIterations = cfg.GetInt("MaxIterations")
	c.FromOriginal = cfg.GetBool("FromOriginal")
	c.Log = logrus.StandardLogger()
	return c, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		if err := json.NewDecoder(strings.NewReader(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("envvars: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("envvars: invalid type for %s: %#v", varName, i)
	}
}
