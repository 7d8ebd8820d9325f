package geojson

import (
	"github.com/diwise/osm-topology/pkg/osm"
)

type GeoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}

func NewFeatureCollection() *GeoJSONFeatureCollection {
	return &GeoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: []GeoJSONFeature{},
	}
}

type GeoJSONFeature struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Geometry   any            `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// GeoJSONLineString is the geometry of a resolved path. Coordinates are
// [longitude, latitude] pairs.
type GeoJSONLineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

func NewLineString(points []osm.Point) *GeoJSONLineString {
	coords := make([][2]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, [2]float64{p.Longitude, p.Latitude})
	}

	return &GeoJSONLineString{
		Type:        "LineString",
		Coordinates: coords,
	}
}

type Tag struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

type Style struct {
	Color  string `json:"color" yaml:"color"`
	Weight int    `json:"weight" yaml:"weight"`
}

// DefaultStyle is how paths have always been drawn on the map: thin blue lines.
var DefaultStyle = Style{Color: "blue", Weight: 2}

type convertOptions struct {
	style   Style
	resolve []osm.ResolveOption
}

type ConvertOption func(*convertOptions)

func WithStyle(style Style) ConvertOption {
	return func(o *convertOptions) {
		if style.Color != "" {
			o.style.Color = style.Color
		}
		if style.Weight > 0 {
			o.style.Weight = style.Weight
		}
	}
}

func SkipDanglingReferences() ConvertOption {
	return func(o *convertOptions) {
		o.resolve = append(o.resolve, osm.SkipDanglingReferences())
	}
}

func newConvertOptions(options []ConvertOption) *convertOptions {
	o := &convertOptions{style: DefaultStyle}
	for _, option := range options {
		option(o)
	}
	return o
}

// ConvertPath resolves the points of p against doc and returns the path as a
// LineString feature. Tags are kept as an ordered list since keys may repeat.
func ConvertPath(doc *osm.Document, p osm.Path, options ...ConvertOption) (*GeoJSONFeature, error) {
	return convertPath(doc, p, newConvertOptions(options))
}

func convertPath(doc *osm.Document, p osm.Path, o *convertOptions) (*GeoJSONFeature, error) {
	points, err := doc.Resolve(p, o.resolve...)
	if err != nil {
		return nil, err
	}

	tags := make([]Tag, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		tags = append(tags, Tag{Key: a.Key, Value: a.Value})
	}

	feature := &GeoJSONFeature{
		ID:       p.ID,
		Type:     "Feature",
		Geometry: NewLineString(points),
		Properties: map[string]any{
			"id":           p.ID,
			"tags":         tags,
			"stroke":       o.style.Color,
			"stroke-width": o.style.Weight,
		},
	}

	return feature, nil
}

// ConvertDocument converts every path in doc, in document order.
func ConvertDocument(doc *osm.Document, options ...ConvertOption) (*GeoJSONFeatureCollection, error) {
	o := newConvertOptions(options)
	fc := NewFeatureCollection()

	for _, p := range doc.Paths {
		feature, err := convertPath(doc, p, o)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, *feature)
	}

	return fc, nil
}
