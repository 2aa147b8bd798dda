// Package handler is the HTTP layer. It binds and validates requests,
// calls the service layer and shapes the JSON responses.
package handler

import (
	"github.com/deppfellow/sitterbook/internal/server"
	"github.com/deppfellow/sitterbook/internal/service"
)

// Handlers groups every HTTP handler for the router.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Jobs    *JobHandler
	Sitters *SitterHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Jobs:    NewJobHandler(s, services.Jobs),
		Sitters: NewSitterHandler(s, services.Sitters),
	}
}
