// Package osm contains a model of OpenStreetMap map extracts (points, paths and
// their attributes) together with a parser for the OSM XML exchange format and
// a resolver that turns a path's point references into coordinates.
package osm

// Document is a parsed map extract. Points and Paths keep the order in which
// they appeared in the source. A Document must not be modified after it has
// been created and may be shared between goroutines for resolution.
type Document struct {
	Points []Point
	Paths  []Path

	index map[string]int
}

// Point is a named geographic location in WGS84 degrees.
type Point struct {
	ID        string
	Latitude  float64
	Longitude float64
}

// Path is an ordered traversal of points, referenced by identifier, together
// with its descriptive attributes.
type Path struct {
	ID         string
	PointRefs  []string
	Attributes []AttributePair
}

// AttributePair is a single key/value attribute. Duplicate keys are kept.
type AttributePair struct {
	Key   string
	Value string
}

// NewDocument creates a document from already built points and paths and
// indexes the points by identifier. When identifiers are duplicated the first
// point wins.
func NewDocument(points []Point, paths []Path) *Document {
	if points == nil {
		points = []Point{}
	}
	if paths == nil {
		paths = []Path{}
	}

	index := make(map[string]int, len(points))
	for i, p := range points {
		if _, exists := index[p.ID]; !exists {
			index[p.ID] = i
		}
	}

	return &Document{
		Points: points,
		Paths:  paths,
		index:  index,
	}
}

// Path returns the first path with the given identifier.
func (d *Document) Path(id string) (Path, bool) {
	for _, p := range d.Paths {
		if p.ID == id {
			return p, true
		}
	}
	return Path{}, false
}

// Attribute returns the value of the first attribute with the given key.
func (p Path) Attribute(key string) (string, bool) {
	for _, a := range p.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
