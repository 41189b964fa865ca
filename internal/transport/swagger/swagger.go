package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocumentPath is where the router serves the embedded OpenAPI document.
const DocumentPath = "/openapi.yml"

// Handler serves Swagger UI for the access-control API. Operations stay
// collapsed so the role, module and permission groups read as a menu.
func Handler(documentURL string) http.Handler {
	if documentURL == "" {
		documentURL = DocumentPath
	}
	return httpSwagger.Handler(
		httpSwagger.URL(documentURL),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)
}
