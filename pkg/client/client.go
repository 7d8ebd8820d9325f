package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/diwise/osm-topology/pkg/osm"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrInvalidBBox = errors.New("invalid bounding box")
var ErrRequest = errors.New("request error")
var ErrBadResponse = errors.New("bad response")

const DefaultBaseURL string = "https://www.openstreetmap.org"

// BBox is a bounding box in WGS84 degrees.
type BBox struct {
	MinLon float64 `yaml:"minLon"`
	MinLat float64 `yaml:"minLat"`
	MaxLon float64 `yaml:"maxLon"`
	MaxLat float64 `yaml:"maxLat"`
}

func (b BBox) Validate() error {
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidBBox, b)
	}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return fmt.Errorf("%w: minimum is larger than maximum in %s", ErrInvalidBBox, b)
	}
	return nil
}

// String formats the box the way the map API expects it: left,bottom,right,top
func (b BBox) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{f(b.MinLon), f(b.MinLat), f(b.MaxLon), f(b.MaxLat)}, ",")
}

type OSMClient interface {
	FetchMap(ctx context.Context, bbox BBox) ([]byte, error)
	Map(ctx context.Context, bbox BBox) (*osm.Document, error)
}

func WithHTTPClient(httpClient *http.Client) func(*osmClient) {
	return func(c *osmClient) {
		c.httpClient = httpClient
	}
}

func WithUserAgent(userAgent string) func(*osmClient) {
	return func(c *osmClient) {
		c.userAgent = userAgent
	}
}

func New(baseURL string, options ...func(*osmClient)) OSMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &osmClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: "diwise/osm-topology",
	}

	for _, option := range options {
		option(c)
	}

	return c
}

const TraceAttributeBBox string = "bbox"

var tracer = otel.Tracer("osm-topology/client")

type osmClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// FetchMap retrieves the raw OSM XML for everything inside bbox.
func (c *osmClient) FetchMap(ctx context.Context, bbox BBox) ([]byte, error) {
	var err error

	ctx, span := tracer.Start(ctx, "fetch-map",
		trace.WithAttributes(attribute.String(TraceAttributeBBox, bbox.String())),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if err = bbox.Validate(); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/0.6/map?bbox=" + bbox.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		err = fmt.Errorf("failed to create request: %s (%w)", err.Error(), ErrRequest)
		return nil, err
	}

	req.Header.Add("Accept", "application/xml")
	req.Header.Add("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to send request: %s (%w)", err.Error(), ErrRequest)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body: %s (%w)", err.Error(), ErrBadResponse)
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		log := logging.GetFromContext(ctx)
		log.Warn("map request failed", "status", resp.StatusCode, "bbox", bbox.String())

		err = fmt.Errorf("map api returned status code %d (body: %s) (%w)", resp.StatusCode, excerpt(body), ErrBadResponse)
		return nil, err
	}

	return body, nil
}

// Map fetches and parses the map extract for bbox.
func (c *osmClient) Map(ctx context.Context, bbox BBox) (*osm.Document, error) {
	body, err := c.FetchMap(ctx, bbox)
	if err != nil {
		return nil, err
	}

	return osm.Parse(bytes.NewReader(body))
}

func excerpt(body []byte) string {
	const maxLength int = 200
	if len(body) > maxLength {
		return string(body[:maxLength]) + "..."
	}
	return string(body)
}
