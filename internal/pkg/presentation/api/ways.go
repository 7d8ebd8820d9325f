package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/diwise/osm-topology/internal/pkg/application/topology"
	"github.com/diwise/osm-topology/internal/pkg/presentation/api/auth"
	"github.com/diwise/osm-topology/internal/pkg/presentation/api/problems"
	"github.com/diwise/osm-topology/pkg/osm"
	"github.com/diwise/osm-topology/pkg/osm/geojson"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const geoJSONContentType string = "application/geo+json"

type danglingMode string

const (
	danglingFail   danglingMode = "fail"
	danglingSkip   danglingMode = "skip"
	danglingReport danglingMode = "report"
)

func danglingModeFromRequest(r *http.Request, allowed ...danglingMode) (danglingMode, error) {
	value := r.URL.Query().Get("dangling")
	if value == "" {
		return danglingFail, nil
	}

	for _, m := range allowed {
		if danglingMode(value) == m {
			return m, nil
		}
	}

	return "", fmt.Errorf("unsupported value %q for dangling", value)
}

// NewQueryWaysHandler handles GET requests for all ways in an area as a
// GeoJSON feature collection
func NewQueryWaysHandler(app topology.TopologyManager, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		areaID := chi.URLParam(r, "areaId")

		ctx, span := tracer.Start(r.Context(), "query-ways",
			trace.WithAttributes(attribute.String(TraceAttributeAreaID, areaID)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, areaID) {
			return
		}

		mode, err := danglingModeFromRequest(r, danglingFail, danglingSkip)
		if err != nil {
			problems.NewBadRequestData(err.Error(), traceID(ctx)).WriteResponse(w)
			return
		}

		snapshot, err := app.Snapshot(ctx, areaID)
		if err != nil {
			reportError(w, err, traceID(ctx))
			return
		}

		options := []geojson.ConvertOption{geojson.WithStyle(app.Style())}
		if mode == danglingSkip {
			options = append(options, geojson.SkipDanglingReferences())
		}

		fc, err := geojson.ConvertDocument(snapshot.Document, options...)
		if err != nil {
			logging.GetFromContext(ctx).Warn("unable to convert ways", "area", areaID, "err", err.Error())
			reportError(w, err, traceID(ctx))
			return
		}

		writeSnapshotResponse(ctx, w, r, snapshot, geoJSONContentType, fc)
	})
}

// NewRetrieveWayHandler handles GET requests for a single way as a GeoJSON feature
func NewRetrieveWayHandler(app topology.TopologyManager, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		areaID := chi.URLParam(r, "areaId")
		wayID := chi.URLParam(r, "wayId")

		ctx, span := tracer.Start(r.Context(), "retrieve-way",
			trace.WithAttributes(
				attribute.String(TraceAttributeAreaID, areaID),
				attribute.String(TraceAttributeWayID, wayID),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, areaID) {
			return
		}

		mode, err := danglingModeFromRequest(r, danglingFail, danglingSkip)
		if err != nil {
			problems.NewBadRequestData(err.Error(), traceID(ctx)).WriteResponse(w)
			return
		}

		snapshot, way, ok := retrieveWay(ctx, w, app, areaID, wayID)
		if !ok {
			return
		}

		options := []geojson.ConvertOption{geojson.WithStyle(app.Style())}
		if mode == danglingSkip {
			options = append(options, geojson.SkipDanglingReferences())
		}

		feature, err := geojson.ConvertPath(snapshot.Document, way, options...)
		if err != nil {
			reportError(w, err, traceID(ctx))
			return
		}

		writeSnapshotResponse(ctx, w, r, snapshot, geoJSONContentType, feature)
	})
}

type pointDTO struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type resolvedRefDTO struct {
	Ref   string    `json:"ref"`
	Point *pointDTO `json:"point,omitempty"`
	Error string    `json:"error,omitempty"`
}

// NewRetrieveWayPointsHandler handles GET requests for the resolved points of a way
func NewRetrieveWayPointsHandler(app topology.TopologyManager, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		areaID := chi.URLParam(r, "areaId")
		wayID := chi.URLParam(r, "wayId")

		ctx, span := tracer.Start(r.Context(), "retrieve-way-points",
			trace.WithAttributes(
				attribute.String(TraceAttributeAreaID, areaID),
				attribute.String(TraceAttributeWayID, wayID),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, areaID) {
			return
		}

		mode, err := danglingModeFromRequest(r, danglingFail, danglingSkip, danglingReport)
		if err != nil {
			problems.NewBadRequestData(err.Error(), traceID(ctx)).WriteResponse(w)
			return
		}

		snapshot, way, ok := retrieveWay(ctx, w, app, areaID, wayID)
		if !ok {
			return
		}

		doc := snapshot.Document

		if mode == danglingReport {
			response := make([]resolvedRefDTO, 0, len(way.PointRefs))
			i := 0
			for p, resolveErr := range doc.PointsOf(way) {
				entry := resolvedRefDTO{Ref: way.PointRefs[i]}
				if resolveErr != nil {
					entry.Error = resolveErr.Error()
				} else {
					entry.Point = &pointDTO{ID: p.ID, Latitude: p.Latitude, Longitude: p.Longitude}
				}
				response = append(response, entry)
				i++
			}

			writeSnapshotResponse(ctx, w, r, snapshot, "application/json", response)
			return
		}

		var resolveOptions []osm.ResolveOption
		if mode == danglingSkip {
			resolveOptions = append(resolveOptions, osm.SkipDanglingReferences())
		}

		points, err := doc.Resolve(way, resolveOptions...)
		if err != nil {
			reportError(w, err, traceID(ctx))
			return
		}

		response := make([]pointDTO, 0, len(points))
		for _, p := range points {
			response = append(response, pointDTO{ID: p.ID, Latitude: p.Latitude, Longitude: p.Longitude})
		}

		writeSnapshotResponse(ctx, w, r, snapshot, "application/json", response)
	})
}

func retrieveWay(ctx context.Context, w http.ResponseWriter, app topology.TopologyManager, areaID, wayID string) (*topology.Snapshot, osm.Path, bool) {
	snapshot, err := app.Snapshot(ctx, areaID)
	if err != nil {
		reportError(w, err, traceID(ctx))
		return nil, osm.Path{}, false
	}

	way, ok := snapshot.Document.Path(wayID)
	if !ok {
		problems.NewNotFound(fmt.Sprintf("no way with id %s in area %s", wayID, areaID), traceID(ctx)).WriteResponse(w)
		return nil, osm.Path{}, false
	}

	return snapshot, way, true
}
