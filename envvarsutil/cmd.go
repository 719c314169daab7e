/*
Copyright © 2017 the InMAP authors.
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
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/envvars"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to envvars.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum level of log messages to print:
              one of debug, info, warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to a file where log messages are
              copied in addition to being printed. It may be a blob storage
              URL (gs://, s3://, or file://).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CacheSize",
			usage: `
              CacheSize specifies the number of input grids to keep in memory.`,
			defaultVal: 8,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "NLCD",
			usage: `
              NLCD is the path to the classified land cover raster (.asc or .nc).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "Scheme",
			usage: `
              Scheme is the land cover classification scheme of the NLCD
              raster: NLCD2001 or NLCD1992.`,
			defaultVal: "NLCD2001",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "SchemeFile",
			usage: `
              SchemeFile is the path to a TOML file holding a custom
              classification scheme. If set, it takes the place of Scheme.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "Impervious",
			usage: `
              Impervious is the path to the impervious surface raster.
              Cells with a value of 127 are treated as missing.
              It is optional.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "Canopy",
			usage: `
              Canopy is the path to the canopy cover raster. It is optional.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "Extent",
			usage: `
              Extent is the path to a shapefile or GeoJSON file holding the
              study area. If it is not set, the whole NLCD raster is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "ExtentBuffer",
			usage: `
              ExtentBuffer is the distance the study area is grown by before
              clipping the input rasters, so that neighborhood statistics near
              the edge of the study area are complete [map units].`,
			defaultVal: 5000.0,
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "Lenient",
			usage: `
              Lenient specifies that land cover codes that are not part of the
              classification scheme are set to missing instead of causing an
              error.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags()},
		},
		{
			name: "Layers",
			usage: `
              Layers specifies the rasters to aggregate, as a map of layer names
              to file paths, for example {"forest":"forest.asc"}. Layer names
              that are land cover classes tag the layer with that class.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "Mask",
			usage: `
              Mask is the path to a raster whose cells holding data make up
              the area outputs are calculated for. For reclassify, the default
              is the NLCD raster within Extent, excluding cells with a value of 0.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags(), aggregateCmd.Flags(), finalizeCmd.Flags()},
		},
		{
			name: "Scales",
			usage: `
              Scales specifies the neighborhoods to average over, in the format
              rect<W>x<H>, circle<R>cell, or circle<R>map, where map radii are
              in map units.`,
			defaultVal: []string{"rect3x3", "circle10cell", "circle100cell"},
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags(), aggregateCmd.Flags()},
		},
		{
			name: "Prefix",
			usage: `
              Prefix is prepended to the names of output grids.`,
			defaultVal: "envvars",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags(), aggregateCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory output grids are written to. It may
              be a blob storage URL.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags(), aggregateCmd.Flags()},
		},
		{
			name: "OutputFormat",
			usage: `
              OutputFormat is either asc, to write each grid to its own Esri
              ASCII grid file, or nc, to write all grids to a single netCDF file
              named after Prefix.`,
			defaultVal: "asc",
			flagsets:   []*pflag.FlagSet{reclassifyCmd.Flags(), aggregateCmd.Flags()},
		},
		{
			name: "Input",
			usage: `
              Input is the path to the input raster. netCDF variables are
              selected with a #variable suffix.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fillCmd.Flags(), finalizeCmd.Flags(), domainCmd.Flags()},
		},
		{
			name: "Output",
			usage: `
              Output is the path to write the result to.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fillCmd.Flags(), finalizeCmd.Flags(), domainCmd.Flags()},
		},
		{
			name: "Template",
			usage: `
              Template is the path to the raster whose cells holding data are
              the cells to be filled. The output has its frame.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "Clip",
			usage: `
              Clip is an optional shapefile or GeoJSON file that further
              restricts the cells to be filled.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "Statistic",
			usage: `
              Statistic is the neighborhood statistic used to fill missing
              cells: mean, median, or majority.`,
			defaultVal: "mean",
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "Mode",
			usage: `
              Mode is either recursive, to fill from progressively larger
              neighborhoods, or singlepass, to fill in one step with a
              neighborhood large enough to reach across the largest gap.`,
			defaultVal: "recursive",
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "Margin",
			usage: `
              Margin is added to the largest gap distance to get the single
              pass neighborhood radius [map units].`,
			defaultVal: envvars.DefaultFillMargin,
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "InitialRadius",
			usage: `
              InitialRadius is the first recursive fill distance [cells].`,
			defaultVal: envvars.DefaultInitialRadius,
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "Growth",
			usage: `
              Growth multiplies the recursive fill distance at each iteration.`,
			defaultVal: envvars.DefaultGrowth,
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "MaxIterations",
			usage: `
              MaxIterations is the number of recursive iterations after which
              filling fails if there are still missing cells.`,
			defaultVal: envvars.DefaultMaxIterations,
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "FromOriginal",
			usage: `
              FromOriginal calculates recursive fill statistics from the input
              raster rather than from the partially filled result.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{fillCmd.Flags()},
		},
		{
			name: "Multiplier",
			usage: `
              Multiplier scales input values before they are rounded to integers.`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{finalizeCmd.Flags()},
		},
		{
			name: "Expression",
			usage: `
              Expression replaces the default finalize expression. The input
              is available as 'value' and the multiplier as 'mult', for example
              "min(int(value * mult + 0.5001), 100)".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{finalizeCmd.Flags()},
		},
		{
			name: "Buffer",
			usage: `
              Buffer is the distance the domain polygon is grown by [map units].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{domainCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ENVVARS")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
			case bool:
				set.Bool(option.name, option.defaultVal.(bool), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				set.String(option.name, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(reclassifyCmd)
	Root.AddCommand(aggregateCmd)
	Root.AddCommand(fillCmd)
	Root.AddCommand(finalizeCmd)
	Root.AddCommand(domainCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig(cmd *cobra.Command) error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("envvars: problem reading configuration file: %v", err)
		}
	}
	return setLog(context.Background(), cmd.OutOrStderr(), Cfg.GetString("LogLevel"), Cfg.GetString("LogFile"))
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "envvars",
	Short: "Gridded environmental variables from land cover data.",
	Long: `envvars derives gridded environmental variables from land cover rasters:
it reclassifies land cover codes into per-class layers, summarizes the layers
with neighborhood means at several scales, fills gaps in rasters from nearby
values, and rounds results to scaled integers.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'ENVVARS_var' where 'var' is the
name of the variable to be set. File paths may contain environment variables
and may be blob storage URLs (gs://, s3://, or file://).
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return setConfig(cmd) },
}

// Execute runs Root. The log file is closed, and uploaded if it is held
// in blob storage, whether or not the command succeeds.
func Execute() error {
	err := Root.Execute()
	if err != nil {
		logrus.WithError(err).Error("command failed")
	}
	if cerr := closeLog(); err == nil {
		err = cerr
	}
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of envvars.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("envvars v%s\n", envvars.Version)
	},
	DisableAutoGenTag: true,
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Reclassify land cover and summarize it at several scales",
	Long: `reclassify splits a classified land cover raster into one layer per
land cover class, clips it and the optional impervious surface and canopy
rasters to the buffered study area, and calculates the mean of every layer
over each of the neighborhoods in Scales.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		scheme, err := loadScheme(ctx, os.ExpandEnv(Cfg.GetString("Scheme")), os.ExpandEnv(Cfg.GetString("SchemeFile")))
		if err != nil {
			return err
		}
		scales, err := parseScales(Cfg.GetStringSlice("Scales"))
		if err != nil {
			return err
		}
		out, err := checkOutput(Cfg.GetString("OutputDir"), Cfg.GetString("OutputFormat"))
		if err != nil {
			return err
		}
		return Reclassify(ctx, newReader(), &ReclassifyConfig{
			NLCD:         Cfg.GetString("NLCD"),
			Scheme:       scheme,
			Impervious:   Cfg.GetString("Impervious"),
			Canopy:       Cfg.GetString("Canopy"),
			Extent:       Cfg.GetString("Extent"),
			ExtentBuffer: Cfg.GetFloat64("ExtentBuffer"),
			Mask:         Cfg.GetString("Mask"),
			Lenient:      Cfg.GetBool("Lenient"),
			Scales:       scales,
			Prefix:       Cfg.GetString("Prefix"),
		}, out)
	},
	DisableAutoGenTag: true,
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarize rasters at several scales",
	Long: `aggregate calculates the mean of every raster in Layers over each of
the neighborhoods in Scales. All layers are placed in the frame of the first
layer, in alphabetical order of the layer names.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		layers, err := GetStringMapString("Layers", Cfg)
		if err != nil {
			return err
		}
		scales, err := parseScales(Cfg.GetStringSlice("Scales"))
		if err != nil {
			return err
		}
		out, err := checkOutput(Cfg.GetString("OutputDir"), Cfg.GetString("OutputFormat"))
		if err != nil {
			return err
		}
		return Aggregate(context.Background(), newReader(), layers, Cfg.GetString("Mask"),
			scales, Cfg.GetString("Prefix"), out)
	},
	DisableAutoGenTag: true,
}

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill gaps in a raster",
	Long: `fill resamples the Input raster to the frame of the Template raster and
replaces its missing cells that hold data in the Template with a statistic of
nearby values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := fillConfig(Cfg)
		if err != nil {
			return err
		}
		output, err := checkOutputFile(Cfg.GetString("Output"))
		if err != nil {
			return err
		}
		return Fill(context.Background(), newReader(), Cfg.GetString("Input"), Cfg.GetString("Template"),
			Cfg.GetString("Clip"), output, cfg)
	},
	DisableAutoGenTag: true,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Convert a raster to scaled integers",
	Long: `finalize multiplies every cell of the Input raster by Multiplier and
rounds the result to an integer, optionally within the cells of a Mask raster.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := checkOutputFile(Cfg.GetString("Output"))
		if err != nil {
			return err
		}
		return Finalize(context.Background(), newReader(), Cfg.GetString("Input"), Cfg.GetString("Mask"),
			Cfg.GetFloat64("Multiplier"), Cfg.GetString("Expression"), output)
	},
	DisableAutoGenTag: true,
}

var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Write the outline of a raster",
	Long: `domain writes the outline of the cells of the Input raster that hold data
to a shapefile or GeoJSON file, optionally grown by Buffer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := checkOutputFile(Cfg.GetString("Output"))
		if err != nil {
			return err
		}
		return Domain(context.Background(), newReader(), Cfg.GetString("Input"), Cfg.GetFloat64("Buffer"), output)
	},
	DisableAutoGenTag: true,
}
