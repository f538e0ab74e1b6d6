package middleware

import (
	"github.com/deppfellow/aquaservice/internal/lib/auth"
	"github.com/deppfellow/aquaservice/internal/server"
)

// Middlewares groups every middleware component used by the router so
// they are built once from the application container.
type Middlewares struct {
	Global          *GlobalMiddlewares
	Auth            *AuthMiddleware
	ContextEnhancer *ContextEnhancer
	Tracing         *TracingMiddleware
	RateLimit       *RateLimitMiddleware
}

// NewMiddlewares constructs all middleware components.
//
// Without New Relic the tracing middleware degrades into a no-op.
func NewMiddlewares(s *server.Server, tokens *auth.TokenManager) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		Auth:            NewAuthMiddleware(s, tokens),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, s.LoggerService.GetApplication()),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
