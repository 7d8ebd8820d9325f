package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/diwise/osm-topology/pkg/osm"
	"github.com/diwise/osm-topology/pkg/osm/geojson"
	"github.com/matryer/is"
)

func TestRunWritesFeatureCollection(t *testing.T) {
	is := is.New(t)
	out := &bytes.Buffer{}

	err := run(context.Background(), strings.NewReader(extract), out)
	is.NoErr(err)

	fc := geojson.GeoJSONFeatureCollection{}
	is.NoErr(json.Unmarshal(out.Bytes(), &fc))
	is.Equal(len(fc.Features), 2)
	is.Equal(fc.Features[0].ID, "w1")
}

func TestRunFailsOnDanglingReference(t *testing.T) {
	is := is.New(t)

	err := run(context.Background(), strings.NewReader(danglingExtract), &bytes.Buffer{})
	is.True(errors.Is(err, osm.ErrDanglingReference))
}

func TestRunCanSkipDanglingReferences(t *testing.T) {
	is := is.New(t)
	out := &bytes.Buffer{}

	err := run(context.Background(), strings.NewReader(danglingExtract), out, geojson.SkipDanglingReferences())
	is.NoErr(err)
	is.True(strings.Contains(out.String(), `"w1"`))
}

func TestRunRejectsMalformedInput(t *testing.T) {
	is := is.New(t)

	err := run(context.Background(), strings.NewReader("<osm><node"), &bytes.Buffer{})
	is.True(errors.Is(err, osm.ErrMalformed))
}

const extract string = `<osm>
	<node id="n1" lat="63.40" lon="10.20"/>
	<node id="n2" lat="63.41" lon="10.21"/>
	<way id="w1"><nd ref="n1"/><nd ref="n2"/><tag k="highway" v="residential"/></way>
	<way id="w2"><nd ref="n2"/><nd ref="n1"/></way>
</osm>`

const danglingExtract string = `<osm>
	<node id="n1" lat="63.40" lon="10.20"/>
	<way id="w1"><nd ref="n1"/><nd ref="n99"/></way>
</osm>`
