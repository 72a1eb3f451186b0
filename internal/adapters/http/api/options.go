package api

import "github.com/okian/eduquest/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithJWTSecret enables HS256 bearer token verification. An empty secret
// leaves authentication disabled.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		s.auth = NewAuthenticator(secret)
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
