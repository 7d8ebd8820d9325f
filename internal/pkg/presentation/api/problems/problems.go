package problems

import (
	"encoding/json"
	"net/http"
)

const (
	//ProblemReportContentType as required by https://tools.ietf.org/html/rfc7807
	ProblemReportContentType string = "application/problem+json"

	typePrefix string = "https://diwise.io/osm-topology/errors/"
)

//ProblemDetails stores details about a certain problem according to RFC7807
//See https://tools.ietf.org/html/rfc7807
type ProblemDetails struct {
	typ     string
	title   string
	detail  string
	code    int
	traceID string
}

func newProblem(name, title string, code int, detail, traceID string) *ProblemDetails {
	return &ProblemDetails{
		typ:     typePrefix + name,
		title:   title,
		detail:  detail,
		code:    code,
		traceID: traceID,
	}
}

func NewBadRequestData(detail, traceID string) *ProblemDetails {
	return newProblem("BadRequestData", "Bad Request Data", http.StatusBadRequest, detail, traceID)
}

func NewNotFound(detail, traceID string) *ProblemDetails {
	return newProblem("ResourceNotFound", "Not Found", http.StatusNotFound, detail, traceID)
}

func NewUnauthorizedRequest(detail, traceID string) *ProblemDetails {
	return newProblem("UnauthorizedRequest", "Unauthorized Request", http.StatusUnauthorized, detail, traceID)
}

//NewDanglingReference reports that a path refers to a point that is missing from the extract
func NewDanglingReference(detail, traceID string) *ProblemDetails {
	return newProblem("DanglingReference", "Dangling Reference", http.StatusUnprocessableEntity, detail, traceID)
}

//NewNotLoaded reports that no map extract has been loaded for an area yet
func NewNotLoaded(detail, traceID string) *ProblemDetails {
	return newProblem("NotLoaded", "Not Loaded", http.StatusServiceUnavailable, detail, traceID)
}

//NewUpstreamError reports that the map data source could not deliver a usable extract
func NewUpstreamError(detail, traceID string) *ProblemDetails {
	return newProblem("UpstreamError", "Upstream Error", http.StatusBadGateway, detail, traceID)
}

func NewInternalError(detail, traceID string) *ProblemDetails {
	return newProblem("InternalError", "Internal Error", http.StatusInternalServerError, detail, traceID)
}

func (p *ProblemDetails) ContentType() string {
	return ProblemReportContentType
}

func (p *ProblemDetails) Type() string   { return p.typ }
func (p *ProblemDetails) Title() string  { return p.title }
func (p *ProblemDetails) Detail() string { return p.detail }

//ResponseCode returns the HTTP response code to be used when returning a specific problem
func (p *ProblemDetails) ResponseCode() int {
	if p.code != 0 {
		return p.code
	}

	return http.StatusBadRequest
}

//MarshalJSON is called when a ProblemDetails instance should be serialized to JSON
func (p *ProblemDetails) MarshalJSON() ([]byte, error) {
	var traceID *string

	if p.traceID != "" {
		traceID = &p.traceID
	}

	return json.Marshal(struct {
		Type    string  `json:"type"`
		Title   string  `json:"title"`
		Detail  string  `json:"detail"`
		TraceID *string `json:"traceID,omitempty"`
	}{
		Type:    p.typ,
		Title:   p.title,
		Detail:  p.detail,
		TraceID: traceID,
	})
}

//WriteResponse writes the contents of this instance to a http.ResponseWriter
func (p *ProblemDetails) WriteResponse(w http.ResponseWriter) {
	w.Header().Add("Content-Type", p.ContentType())
	w.Header().Add("Content-Language", "en")
	w.WriteHeader(p.ResponseCode())

	pdbytes, err := json.MarshalIndent(p, "", "  ")
	if err == nil {
		w.Write(pdbytes)
	}
}
