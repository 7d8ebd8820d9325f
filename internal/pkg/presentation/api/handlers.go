package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/diwise/osm-topology/internal/pkg/application/topology"
	"github.com/diwise/osm-topology/internal/pkg/presentation/api/auth"
	"github.com/diwise/osm-topology/internal/pkg/presentation/api/problems"
	"github.com/diwise/osm-topology/pkg/client"
	"github.com/diwise/osm-topology/pkg/osm"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("osm-topology/api")

const (
	TraceAttributeAreaID string = "area-id"
	TraceAttributeWayID  string = "way-id"
)

func RegisterHandlers(ctx context.Context, r chi.Router, policies io.Reader, app topology.TopologyManager) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	r.Route("/api/v0", func(r chi.Router) {
		r.Use(Logger(logging.GetFromContext(ctx)))

		r.Get("/areas", NewListAreasHandler(app, authenticator))

		r.Route("/areas/{areaId}", func(r chi.Router) {
			r.Post("/refresh", NewRefreshAreaHandler(app, authenticator))

			r.Get("/ways", NewQueryWaysHandler(app, authenticator))
			r.Get("/ways/{wayId}", NewRetrieveWayHandler(app, authenticator))
			r.Get("/ways/{wayId}/points", NewRetrieveWayPointsHandler(app, authenticator))
		})
	})

	return nil
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func traceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// checkAccess reports an unauthorized request and returns false if access
// is not granted.
func checkAccess(ctx context.Context, w http.ResponseWriter, r *http.Request, authenticator auth.Enticator, areaID string) bool {
	err := authenticator.CheckAccess(ctx, r, areaID)
	if err != nil {
		logging.GetFromContext(ctx).Warn("access not granted", "err", err.Error())
		problems.NewUnauthorizedRequest("access not granted", traceID(ctx)).WriteResponse(w)
		return false
	}
	return true
}

func reportError(w http.ResponseWriter, err error, traceID string) {
	var problem *problems.ProblemDetails

	switch {
	case errors.Is(err, topology.ErrUnknownArea):
		problem = problems.NewNotFound(err.Error(), traceID)
	case errors.Is(err, topology.ErrNotLoaded):
		problem = problems.NewNotLoaded(err.Error(), traceID)
	case errors.Is(err, osm.ErrDanglingReference):
		problem = problems.NewDanglingReference(err.Error(), traceID)
	case errors.Is(err, client.ErrRequest), errors.Is(err, client.ErrBadResponse),
		errors.Is(err, osm.ErrMalformed), errors.Is(err, osm.ErrInvalidPoint), errors.Is(err, osm.ErrInvalidPath):
		problem = problems.NewUpstreamError(err.Error(), traceID)
	default:
		problem = problems.NewInternalError(err.Error(), traceID)
	}

	problem.WriteResponse(w)
}

// writeSnapshotResponse marshals body and writes it with the snapshot
// revision as entity tag, or answers 304 if the client already has it.
func writeSnapshotResponse(ctx context.Context, w http.ResponseWriter, r *http.Request, snapshot *topology.Snapshot, contentType string, body any) {
	etag := fmt.Sprintf("%q", snapshot.Revision)
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(ctx, w, http.StatusOK, contentType, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, contentType string, body any) {
	responseBody, err := json.Marshal(body)
	if err != nil {
		logging.GetFromContext(ctx).Error("failed to marshal response", "err", err.Error())
		problems.NewInternalError(err.Error(), traceID(ctx)).WriteResponse(w)
		return
	}

	w.Header().Add("Content-Type", contentType)
	w.WriteHeader(code)
	w.Write(responseBody)
}
