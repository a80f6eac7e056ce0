package providers

import (
	"context"
	"fmt"
	"net/http"
)

// SimpleAPIKeyAuth sends a static API key in a request header
type SimpleAPIKeyAuth struct {
	apiKey     string
	headerName string
	prefix     string
}

// NewSimpleAPIKeyAuth creates an authenticator. Header defaults to
// Authorization and prefix to "Bearer ".
func NewSimpleAPIKeyAuth(apiKey, headerName, prefix string) *SimpleAPIKeyAuth {
	if headerName == "" {
		headerName = "Authorization"
	}
	if prefix == "" {
		prefix = "Bearer "
	}

	return &SimpleAPIKeyAuth{
		apiKey:     apiKey,
		headerName: headerName,
		prefix:     prefix,
	}
}

// Authenticate fails when no key is configured
func (a *SimpleAPIKeyAuth) Authenticate(ctx context.Context) (AuthContext, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return a, nil
}

// ApplyToRequest sets the key header on an *http.Request
func (a *SimpleAPIKeyAuth) ApplyToRequest(ctx context.Context, req any) error {
	httpReq, ok := req.(*http.Request)
	if !ok {
		return fmt.Errorf("expected *http.Request, got %T", req)
	}

	httpReq.Header.Set(a.headerName, a.prefix+a.apiKey)
	return nil
}
