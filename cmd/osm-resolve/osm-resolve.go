package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/diwise/osm-topology/pkg/osm"
	"github.com/diwise/osm-topology/pkg/osm/geojson"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
)

const appName string = "osm-resolve"

func main() {
	appVersion := buildinfo.SourceVersion()

	var skipDangling bool
	var color string
	var weight int

	flag.BoolVar(&skipDangling, "skip-dangling", false, "leave out references to missing nodes instead of failing")
	flag.StringVar(&color, "color", geojson.DefaultStyle.Color, "stroke color of the ways")
	flag.IntVar(&weight, "weight", geojson.DefaultStyle.Weight, "stroke width of the ways")
	flag.Parse()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	in := io.Reader(os.Stdin)

	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Error("failed to open input", "file", flag.Arg(0), "err", err.Error())
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	options := []geojson.ConvertOption{geojson.WithStyle(geojson.Style{Color: color, Weight: weight})}
	if skipDangling {
		options = append(options, geojson.SkipDanglingReferences())
	}

	err := run(ctx, in, os.Stdout, options...)
	if err != nil {
		log.Error("failed to resolve document", "err", err.Error())
		os.Exit(1)
	}
}

func run(_ context.Context, in io.Reader, out io.Writer, options ...geojson.ConvertOption) error {
	doc, err := osm.Parse(in)
	if err != nil {
		return err
	}

	fc, err := geojson.ConvertDocument(doc, options...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err = enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to write feature collection: %w", err)
	}

	return nil
}
