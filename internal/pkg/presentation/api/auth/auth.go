package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/open-policy-agent/opa/rego"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("osm-topology/api/authz")

var ErrAccessDenied = errors.New("access to area denied")

// Enticator decides whether a request may read or refresh an area. An empty
// area id is used for requests that are not tied to a single area.
type Enticator interface {
	CheckAccess(ctx context.Context, r *http.Request, areaID string) error
}

type areaPolicy struct {
	query rego.PreparedEvalQuery
}

// NewAuthenticator compiles the rego module read from policies. The module
// must define data.example.authz.allow, which is either false or an object.
func NewAuthenticator(ctx context.Context, policies io.Reader) (Enticator, error) {
	module, err := io.ReadAll(policies)
	if err != nil {
		return nil, fmt.Errorf("failed to read area access policies: %w", err)
	}

	query, err := rego.New(
		rego.Query("x = data.example.authz.allow"),
		rego.Module("osm-topology.rego", string(module)),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile area access policies: %w", err)
	}

	return &areaPolicy{query: query}, nil
}

func (p *areaPolicy) CheckAccess(ctx context.Context, r *http.Request, areaID string) error {
	var err error

	ctx, span := tracer.Start(ctx, "check-area-access",
		trace.WithAttributes(attribute.String("area-id", areaID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	results, err := p.query.Eval(ctx, rego.EvalInput(policyInput(r, areaID)))
	if err != nil {
		err = fmt.Errorf("policy evaluation failed: %w", err)
		return err
	}

	if len(results) == 0 {
		err = fmt.Errorf("policies did not produce a decision (%w)", ErrAccessDenied)
		return err
	}

	switch decision := results[0].Bindings["x"].(type) {
	case bool:
		if !decision {
			err = ErrAccessDenied
		}
	case map[string]any:
	default:
		err = fmt.Errorf("unexpected policy decision of type %T", decision)
	}

	return err
}

// policyInput is the document the policies are evaluated against.
func policyInput(r *http.Request, areaID string) map[string]any {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = token[7:]
	}

	return map[string]any{
		"method": r.Method,
		"path":   strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/"),
		"token":  token,
		"area":   areaID,
	}
}
