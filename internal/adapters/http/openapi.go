package httpadapter

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var apiDescription []byte

// apiRoutes is the parsed API description used for request validation.
// The description is embedded at build time and verified by package tests.
var apiRoutes = mustLoadAPIRoutes()

func mustLoadAPIRoutes() routers.Router {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(apiDescription)
	if err != nil {
		panic(fmt.Sprintf("load embedded api description: %v", err))
	}
	if err := doc.Validate(loader.Context); err != nil {
		panic(fmt.Sprintf("validate embedded api description: %v", err))
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		panic(fmt.Sprintf("build api route index: %v", err))
	}
	return router
}

// validationMiddleware rejects requests whose body does not match the
// embedded API description. Paths and methods the description does not
// know fall through to the mux, which owns 404 and 405 handling. The
// validator buffers and restores the request body, so handlers decode it
// as usual.
func validationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := apiRoutes.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErrorMessage(err)})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// validationErrorMessage flattens a validator error to its first line.
// Schema errors append the offending value over multiple lines.
func validationErrorMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return "invalid request"
	}
	message := reqErr.Error()
	if i := strings.IndexByte(message, '\n'); i > 0 {
		message = message[:i]
	}
	return strings.TrimSpace(message)
}
