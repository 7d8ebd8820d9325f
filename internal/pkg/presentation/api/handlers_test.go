package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diwise/osm-topology/internal/pkg/application/topology"
	"github.com/diwise/osm-topology/pkg/client"
	"github.com/diwise/osm-topology/pkg/osm"
	"github.com/diwise/osm-topology/pkg/osm/geojson"
	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
)

func TestQueryWays(t *testing.T) {
	is, ts, _ := setupTest(t, allowAll)
	defer ts.Close()

	resp, body := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways", nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "application/geo+json")
	is.Equal(resp.Header.Get("ETag"), `"rev-1"`)

	fc := geojson.GeoJSONFeatureCollection{}
	is.NoErr(json.Unmarshal([]byte(body), &fc))
	is.Equal(fc.Type, "FeatureCollection")
	is.Equal(len(fc.Features), 1)
	is.Equal(fc.Features[0].ID, "w1")
	is.Equal(fc.Features[0].Properties["stroke"], "blue")
}

func TestQueryWaysWithDanglingReferences(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	app.SnapshotFunc = snapshotOf(danglingExtract)

	resp, body := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways", nil)
	is.Equal(resp.StatusCode, http.StatusUnprocessableEntity)
	is.True(strings.Contains(body, `n99`)) // problem report should name the missing point

	resp, _ = newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways?dangling=skip", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	resp, _ = newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways?dangling=report", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestQueryWaysReturnsNotModified(t *testing.T) {
	is, ts, _ := setupTest(t, allowAll)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v0/areas/trondheim/ways", nil)
	req.Header.Set("If-None-Match", `"rev-1"`)

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	is.Equal(resp.StatusCode, http.StatusNotModified)
}

func TestQueryWaysInUnknownArea(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	app.SnapshotFunc = func(ctx context.Context, areaID string) (*topology.Snapshot, error) {
		return nil, fmt.Errorf("%w: %s", topology.ErrUnknownArea, areaID)
	}

	resp, _ := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/atlantis/ways", nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestQueryWaysBeforeAreaIsLoaded(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	app.SnapshotFunc = func(ctx context.Context, areaID string) (*topology.Snapshot, error) {
		return nil, fmt.Errorf("%w: %s", topology.ErrNotLoaded, areaID)
	}

	resp, _ := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways", nil)
	is.Equal(resp.StatusCode, http.StatusServiceUnavailable)
}

func TestRetrieveWay(t *testing.T) {
	is, ts, _ := setupTest(t, allowAll)
	defer ts.Close()

	resp, body := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways/w1", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"id":"w1","type":"Feature","geometry":{"type":"LineString","coordinates":[[10.2,63.4],[10.21,63.41]]},"properties":{"id":"w1","stroke":"blue","stroke-width":2,"tags":[{"k":"highway","v":"residential"}]}}`)

	resp, _ = newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways/w2", nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestRetrieveWayPoints(t *testing.T) {
	is, ts, _ := setupTest(t, allowAll)
	defer ts.Close()

	resp, body := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways/w1/points", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `[{"id":"n1","lat":63.4,"lon":10.2},{"id":"n2","lat":63.41,"lon":10.21}]`)
}

func TestRetrieveWayPointsWithDanglingReferences(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	app.SnapshotFunc = snapshotOf(danglingExtract)

	resp, _ := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways/w1/points", nil)
	is.Equal(resp.StatusCode, http.StatusUnprocessableEntity)

	resp, body := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways/w1/points?dangling=skip", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `[{"id":"n1","lat":63.4,"lon":10.2}]`)

	resp, body = newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways/w1/points?dangling=report", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `[{"ref":"n1","point":{"id":"n1","lat":63.4,"lon":10.2}},{"ref":"n99","error":"path \"w1\" references missing point \"n99\""}]`)
}

func TestListAreas(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	app.SnapshotFunc = func(ctx context.Context, areaID string) (*topology.Snapshot, error) {
		if areaID == "sundsvall" {
			return nil, topology.ErrNotLoaded
		}
		return snapshotOf(testExtract)(ctx, areaID)
	}

	resp, body := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `[{"id":"trondheim","name":"Trondheim sentrum","bbox":[10.2,63.4,10.3,63.4],"revision":"rev-1","fetchedAt":"2024-03-01T12:00:00Z"},{"id":"sundsvall","name":"Sundsvall","bbox":[17.28,62.38,17.33,62.4]}]`)
}

func TestRefreshArea(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	resp, body := newTestRequest(is, ts, http.MethodPost, "/api/v0/areas/trondheim/refresh", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"revision":"rev-1"`))
	is.Equal(len(app.RefreshCalls()), 1)
	is.Equal(app.RefreshCalls()[0].AreaID, "trondheim")
}

func TestRefreshUnknownArea(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	resp, _ := newTestRequest(is, ts, http.MethodPost, "/api/v0/areas/atlantis/refresh", nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
	is.Equal(len(app.RefreshCalls()), 0) // unknown areas should never be fetched
}

func TestFailedRefreshReportsUpstreamError(t *testing.T) {
	is, ts, app := setupTest(t, allowAll)
	defer ts.Close()

	app.RefreshFunc = func(ctx context.Context, areaID string) (*topology.Snapshot, error) {
		return nil, fmt.Errorf("map api returned status code 509 (%w)", client.ErrBadResponse)
	}

	resp, _ := newTestRequest(is, ts, http.MethodPost, "/api/v0/areas/trondheim/refresh", nil)
	is.Equal(resp.StatusCode, http.StatusBadGateway)
}

func TestAccessNotGranted(t *testing.T) {
	is, ts, app := setupTest(t, denyAll)
	defer ts.Close()

	resp, _ := newTestRequest(is, ts, http.MethodGet, "/api/v0/areas/trondheim/ways", nil)
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
	is.Equal(len(app.SnapshotCalls()), 0)
}

func setupTest(t *testing.T, policies string) (*is.I, *httptest.Server, *topology.TopologyManagerMock) {
	is := is.New(t)

	app := &topology.TopologyManagerMock{
		AreasFunc: func() []topology.Area {
			return []topology.Area{
				{ID: "trondheim", Name: "Trondheim sentrum", BBox: client.BBox{MinLon: 10.2, MinLat: 63.4, MaxLon: 10.3, MaxLat: 63.4}},
				{ID: "sundsvall", Name: "Sundsvall", BBox: client.BBox{MinLon: 17.28, MinLat: 62.38, MaxLon: 17.33, MaxLat: 62.40}},
			}
		},
		StyleFunc: func() geojson.Style {
			return geojson.Style{}
		},
		SnapshotFunc: snapshotOf(testExtract),
		RefreshFunc:  snapshotOf(testExtract),
	}

	r := chi.NewRouter()
	err := RegisterHandlers(context.Background(), r, strings.NewReader(policies), app)
	is.NoErr(err)

	return is, httptest.NewServer(r), app
}

func snapshotOf(extract string) func(context.Context, string) (*topology.Snapshot, error) {
	doc, err := osm.ParseString(extract)
	if err != nil {
		panic(err)
	}

	return func(ctx context.Context, areaID string) (*topology.Snapshot, error) {
		return &topology.Snapshot{
			AreaID:    areaID,
			Revision:  "rev-1",
			FetchedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Document:  doc,
		}, nil
	}
}

func newTestRequest(is *is.I, ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	req.Header.Add("Authorization", "Bearer token")

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}

const allowAll string = `
package example.authz

default allow := false

allow = response {
    response := {
    }
}
`

const denyAll string = `
package example.authz

default allow := false
`

const testExtract string = `<osm>
	<node id="n1" lat="63.40" lon="10.20"/>
	<node id="n2" lat="63.41" lon="10.21"/>
	<way id="w1"><nd ref="n1"/><nd ref="n2"/><tag k="highway" v="residential"/></way>
</osm>`

const danglingExtract string = `<osm>
	<node id="n1" lat="63.40" lon="10.20"/>
	<way id="w1"><nd ref="n1"/><nd ref="n99"/></way>
</osm>`
