package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/diwise/osm-topology/internal/pkg/application/topology"
	"github.com/diwise/osm-topology/internal/pkg/presentation/api/auth"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type areaDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	BBox      [4]float64 `json:"bbox"`
	Revision  string     `json:"revision,omitempty"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
}

func newAreaDTO(area topology.Area, snapshot *topology.Snapshot) areaDTO {
	dto := areaDTO{
		ID:   area.ID,
		Name: area.Name,
		BBox: [4]float64{area.BBox.MinLon, area.BBox.MinLat, area.BBox.MaxLon, area.BBox.MaxLat},
	}

	if snapshot != nil {
		dto.Revision = snapshot.Revision
		fetchedAt := snapshot.FetchedAt
		dto.FetchedAt = &fetchedAt
	}

	return dto
}

// NewListAreasHandler handles GET requests for the configured areas and the
// state of their latest extracts
func NewListAreasHandler(app topology.TopologyManager, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !checkAccess(ctx, w, r, authenticator, "") {
			return
		}

		areas := app.Areas()
		response := make([]areaDTO, 0, len(areas))

		for _, area := range areas {
			snapshot, err := app.Snapshot(ctx, area.ID)
			if err != nil && !errors.Is(err, topology.ErrNotLoaded) {
				reportError(w, err, traceID(ctx))
				return
			}
			response = append(response, newAreaDTO(area, snapshot))
		}

		writeJSON(ctx, w, http.StatusOK, "application/json", response)
	})
}

// NewRefreshAreaHandler handles POST requests that ask for an area to be
// fetched again from the map data source
func NewRefreshAreaHandler(app topology.TopologyManager, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		areaID := chi.URLParam(r, "areaId")

		ctx, span := tracer.Start(r.Context(), "refresh-area",
			trace.WithAttributes(attribute.String(TraceAttributeAreaID, areaID)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, areaID) {
			return
		}

		area, ok := findArea(app, areaID)
		if !ok {
			err = topology.ErrUnknownArea
			reportError(w, err, traceID(ctx))
			return
		}

		snapshot, err := app.Refresh(ctx, areaID)
		if err != nil {
			logging.GetFromContext(ctx).Error("refresh failed", "area", areaID, "err", err.Error())
			reportError(w, err, traceID(ctx))
			return
		}

		writeJSON(ctx, w, http.StatusOK, "application/json", newAreaDTO(area, snapshot))
	})
}

func findArea(app topology.TopologyManager, areaID string) (topology.Area, bool) {
	for _, a := range app.Areas() {
		if a.ID == areaID {
			return a, true
		}
	}
	return topology.Area{}, false
}
