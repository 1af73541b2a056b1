package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "gatewayd/docs" // registers the OpenAPI document with swag
)

// MountSwagger serves the Swagger UI and doc.json under /swagger/ when
// enabled with SetSwaggerEnabled.
func MountSwagger(r chi.Router) {
	if !swaggerEnabled {
		return
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))
}
