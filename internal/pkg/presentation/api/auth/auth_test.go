package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestAllowedRequest(t *testing.T) {
	is := is.New(t)

	a, err := NewAuthenticator(context.Background(), strings.NewReader(policies))
	is.NoErr(err)

	r := httptest.NewRequest(http.MethodGet, "/api/v0/areas/trondheim/ways", nil)
	r.Header.Set("Authorization", "Bearer letmein")

	is.NoErr(a.CheckAccess(context.Background(), r, "trondheim"))
}

func TestRequestWithoutTokenIsDenied(t *testing.T) {
	is := is.New(t)

	a, err := NewAuthenticator(context.Background(), strings.NewReader(policies))
	is.NoErr(err)

	r := httptest.NewRequest(http.MethodGet, "/api/v0/areas/trondheim/ways", nil)

	err = a.CheckAccess(context.Background(), r, "trondheim")
	is.True(errors.Is(err, ErrAccessDenied))
}

func TestPolicyCanRestrictAreas(t *testing.T) {
	is := is.New(t)

	a, err := NewAuthenticator(context.Background(), strings.NewReader(policies))
	is.NoErr(err)

	r := httptest.NewRequest(http.MethodGet, "/api/v0/areas/secret/ways", nil)
	r.Header.Set("Authorization", "Bearer letmein")

	err = a.CheckAccess(context.Background(), r, "secret")
	is.True(errors.Is(err, ErrAccessDenied))
}

func TestInvalidPolicyIsRejected(t *testing.T) {
	is := is.New(t)

	_, err := NewAuthenticator(context.Background(), strings.NewReader("package example.authz\n\nallow = {"))
	is.True(err != nil)
}

func TestPolicyCanMatchOnRequestPath(t *testing.T) {
	is := is.New(t)

	readOnly := `
package example.authz

default allow := false

allow {
    input.method == "GET"
    input.path == ["api", "v0", "areas", input.area, "ways"]
}
`

	a, err := NewAuthenticator(context.Background(), strings.NewReader(readOnly))
	is.NoErr(err)

	r := httptest.NewRequest(http.MethodGet, "/api/v0/areas/trondheim/ways", nil)
	is.NoErr(a.CheckAccess(context.Background(), r, "trondheim"))

	r = httptest.NewRequest(http.MethodPost, "/api/v0/areas/trondheim/refresh", nil)
	err = a.CheckAccess(context.Background(), r, "trondheim")
	is.True(errors.Is(err, ErrAccessDenied))
}

const policies string = `
package example.authz

default allow := false

allow = response {
    input.token == "letmein"
    input.area != "secret"
    response := {}
}
`
