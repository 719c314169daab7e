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
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/envvars"
)

func TestParseScales(t *testing.T) {
	k, err := parseScales([]string{"rect3x3", " circle10cell", "circle1000map"})
	if err != nil {
		t.Fatal(err)
	}
	want := []envvars.Kernel{
		envvars.Rectangle{Width: 3, Height: 3},
		envvars.Circle{Radius: 10, Unit: envvars.Cells},
		envvars.Circle{Radius: 1000, Unit: envvars.MapUnits},
	}
	if !reflect.DeepEqual(k, want) {
		t.Errorf("have %v, want %v", k, want)
	}
	if _, err := parseScales([]string{"hexagon"}); err == nil {
		t.Error("expected an error for an invalid scale")
	}
	if _, err := parseScales(nil); err == nil {
		t.Error("expected an error for no scales")
	}
}

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	cfg.Set("json", `{"forest":"f.asc","canopy":"c.asc"}`)
	cfg.Set("map", map[string]interface{}{"forest": "f.asc", "canopy": "c.asc"})
	cfg.Set("empty", "")
	want := map[string]string{"forest": "f.asc", "canopy": "c.asc"}
	for _, name := range []string{"json", "map"} {
		t.Run(name, func(t *testing.T) {
			m, err := GetStringMapString(name, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(m, want) {
				t.Errorf("have %v, want %v", m, want)
			}
		})
	}
	m, err := GetStringMapString("empty", cfg)
	if err != nil || len(m) != 0 {
		t.Errorf("empty: have %v, %v", m, err)
	}
}

func TestFillConfig(t *testing.T) {
	cfg := viper.New()
	cfg.Set("Mode", "singlepass")
	cfg.Set("Statistic", "majority")
	cfg.Set("Margin", 60.0)
	cfg.Set("InitialRadius", 3.0)
	cfg.Set("Growth", 2.0)
	cfg.Set("MaxIterations", 5)
	c, err := fillConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.Mode != envvars.SinglePass || c.Statistic != envvars.Majority || c.Margin != 60 ||
		c.InitialRadius != 3 || c.MaxIterations != 5 {
		t.Errorf("unexpected configuration %+v", c)
	}
	cfg.Set("Mode", "sideways")
	if _, err := fillConfig(cfg); err == nil {
		t.Error("expected an error for an invalid mode")
	}
}

func TestCheckOutput(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	if _, err := checkOutput(dir, "tif"); err == nil {
		t.Error("expected an error for an invalid format")
	}
	o, err := checkOutput(filepath.Join(dir, "new"), ".NC")
	if err != nil {
		t.Fatal(err)
	}
	if o.Format != "nc" {
		t.Errorf("format: have %s, want nc", o.Format)
	}
	if _, err := os.Stat(o.Dir); err != nil {
		t.Error(err)
	}
	if p := (output{Dir: "gs://bucket/dir/"}).path("a.asc"); p != "gs://bucket/dir/a.asc" {
		t.Errorf("blob path: have %s", p)
	}
	if _, err := checkOutputFile(filepath.Join(dir, "missing", "out.asc")); err == nil {
		t.Error("expected an error for a missing output directory")
	}
}

func TestLoadScheme(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "scheme.toml")
	const scheme = `name = "custom"
domain = [1, 2]
[[table]]
class = "forest"
[table.weights]
"1" = 1.0
`
	if err := ioutil.WriteFile(file, []byte(scheme), 0644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{file, "file://" + file} {
		s, err := loadScheme(context.Background(), "NLCD1992", path)
		if err != nil {
			t.Fatal(err)
		}
		if s.Name != "custom" {
			t.Errorf("name: have %s, want custom", s.Name)
		}
	}
	s, err := loadScheme(context.Background(), "1992", "")
	if err != nil {
		t.Fatal(err)
	}
	if s != envvars.NLCD1992 {
		t.Errorf("have scheme %s, want NLCD1992", s.Name)
	}
}

func TestSetLog(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "run.log")
	if err := setLog(context.Background(), ioutil.Discard, "debug", file); err != nil {
		t.Fatal(err)
	}
	logrus.Info("test message")
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "test message") {
		t.Errorf("log file does not hold the message: %q", b)
	}
	if err := setLog(context.Background(), ioutil.Discard, "loud", ""); err == nil {
		t.Error("expected an error for an invalid level")
	}
	logrus.SetLevel(logrus.InfoLevel)
}

func TestMergePolygons(t *testing.T) {
	a := geom.Polygon{{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}}
	b := geom.Polygon{{{X: 5, Y: 5}, {X: 15, Y: 5}, {X: 15, Y: 15}, {X: 5, Y: 15}}}
	m := mergePolygons([]geom.Polygonal{a, b})
	for _, pt := range []geom.Point{{X: 2, Y: 2}, {X: 7, Y: 7}, {X: 12, Y: 12}} {
		if pt.Within(m) != geom.Inside {
			t.Errorf("%v is not inside of the merged polygons", pt)
		}
	}
}
