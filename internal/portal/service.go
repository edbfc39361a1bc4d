// Package portal is the typed surface over the portal's REST API: case
// submission and management, public tracking, messaging, notifications,
// visits, and the lawyer profile. All calls go through the authenticated
// client, so refresh-on-401 is handled below this layer.
package portal

import (
	"go.uber.org/zap"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/internal/observability"
	"github.com/huquq-center/insaf/internal/openapi"
)

// Service exposes the portal operations. Paths are resolved from the
// indexed OpenAPI description rather than hand-written, so the client and
// the portal contract cannot drift apart silently.
type Service struct {
	api     *auth.Client
	index   *openapi.Index
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewService creates the portal surface over an authenticated client.
func NewService(api *auth.Client, index *openapi.Index, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, index: index, logger: logger, metrics: metrics}
}

func (s *Service) path(operationID string, params map[string]string) (string, error) {
	return s.index.PathFor(operationID, params)
}
