package osm

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

type xmlDocument struct {
	Nodes []xmlNode `xml:"node"`
	Ways  []xmlWay  `xml:"way"`
}

type xmlNode struct {
	ID  *string `xml:"id,attr"`
	Lat *string `xml:"lat,attr"`
	Lon *string `xml:"lon,attr"`
}

type xmlWay struct {
	ID   *string  `xml:"id,attr"`
	Nds  []xmlNd  `xml:"nd"`
	Tags []xmlTag `xml:"tag"`
}

type xmlNd struct {
	Ref string `xml:"ref,attr"`
}

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

// ParseString parses an OSM XML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a complete OSM XML document from r. Elements other than node,
// way, nd and tag are ignored. Any failure aborts the whole parse.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	root, err := findRootElement(dec)
	if err != nil {
		return nil, newMalformedError(err)
	}

	raw := xmlDocument{}
	if err := dec.DecodeElement(&raw, &root); err != nil {
		return nil, newMalformedError(err)
	}

	if err := expectEndOfDocument(dec); err != nil {
		return nil, newMalformedError(err)
	}

	points := make([]Point, 0, len(raw.Nodes))
	for i, n := range raw.Nodes {
		p, err := n.toPoint(i)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	paths := make([]Path, 0, len(raw.Ways))
	for i, w := range raw.Ways {
		p, err := w.toPath(i)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	return NewDocument(points, paths), nil
}

// findRootElement skips the prolog and returns the start of the root element.
// Text other than whitespace before the root is not allowed.
func findRootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, errors.New("document is empty")
		}
		if err != nil {
			return xml.StartElement{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xml.StartElement{}, errors.New("unexpected text before root element")
			}
		}
	}
}

// expectEndOfDocument consumes whatever follows the root element and fails
// if anything other than comments, processing instructions or whitespace is
// found there.
func expectEndOfDocument(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("unexpected element <%s> after root element", t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.New("unexpected text after root element")
			}
		}
	}
}

func (n xmlNode) toPoint(position int) (Point, error) {
	if n.ID == nil || *n.ID == "" {
		return Point{}, newInvalidPointError(fmt.Sprintf("node #%d has no id", position+1), nil)
	}

	id := *n.ID

	lat, err := parseCoordinate(id, "lat", n.Lat)
	if err != nil {
		return Point{}, err
	}

	lon, err := parseCoordinate(id, "lon", n.Lon)
	if err != nil {
		return Point{}, err
	}

	return Point{ID: id, Latitude: lat, Longitude: lon}, nil
}

// decimalNumber matches plain decimal notation with an optional exponent.
var decimalNumber = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

func parseCoordinate(nodeID, name string, value *string) (float64, error) {
	if value == nil {
		return 0, newInvalidPointError(fmt.Sprintf("node %q has no %s", nodeID, name), nil)
	}

	if !decimalNumber.MatchString(*value) {
		return 0, newInvalidPointError(fmt.Sprintf("node %q has a non-numeric %s %q", nodeID, name, *value), nil)
	}

	f, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		return 0, newInvalidPointError(fmt.Sprintf("node %q has an out of range %s %q", nodeID, name, *value), err)
	}

	return f, nil
}

func (w xmlWay) toPath(position int) (Path, error) {
	if w.ID == nil || *w.ID == "" {
		return Path{}, newInvalidPathError(fmt.Sprintf("way #%d has no id", position+1))
	}

	refs := make([]string, 0, len(w.Nds))
	for _, nd := range w.Nds {
		refs = append(refs, nd.Ref)
	}

	attributes := make([]AttributePair, 0, len(w.Tags))
	for _, t := range w.Tags {
		attributes = append(attributes, AttributePair{Key: t.K, Value: t.V})
	}

	return Path{
		ID:         *w.ID,
		PointRefs:  refs,
		Attributes: attributes,
	}, nil
}
