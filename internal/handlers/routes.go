package handlers

import (
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// ReservedPaths are top-level path segments that cannot be used as custom codes.
var ReservedPaths = []string{"v1", "health", "metrics", "docs", "openapi", "schemas"}

var envelopeErrors sync.Once

// UseEnvelopeErrors makes huma render framework errors, such as body
// validation failures, with the {success, code, message} body. huma.NewError
// is process-wide, so this affects every huma API in the process. Only the
// first call has an effect.
func UseEnvelopeErrors() {
	envelopeErrors.Do(func() {
		huma.NewError = newEnvelopeError
	})
}

// RegisterRoutes registers all URL shortener routes.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "shorten-url",
		Method:      http.MethodPost,
		Path:        "/v1/short-url/shorten",
		Summary:     "Create short URL",
		Description: "Creates a short URL. Identified callers may choose the code and the expiration in days.",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, urlHandler.Shorten)

	huma.Register(api, huma.Operation{
		OperationID: "lookup-url",
		Method:      http.MethodGet,
		Path:        "/v1/short-url/lookup/{shortCode}",
		Summary:     "Look up short URL",
		Description: "Returns the original URL and expiration of a short code.",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, urlHandler.Lookup)

	huma.Register(api, huma.Operation{
		OperationID: "redirect-url",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL associated with the short code.",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusNotFound, http.StatusGone, http.StatusInternalServerError},
	}, urlHandler.Redirect)
}
