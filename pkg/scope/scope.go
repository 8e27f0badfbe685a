// Package scope defines the tenant partition every analytics computation
// runs under. A Scope is always passed explicitly into repository and
// service calls; the context helpers exist only for the transport edge,
// where middleware extracts the scope from request headers.
package scope

import (
	"context"

	"github.com/pharmaconnect/stock-analytics/pkg/errors"
)

// Scope identifies the (organization, project) partition. All entities are
// keyed by a Scope; cross-scope reads are forbidden.
type Scope struct {
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id"`
}

// New creates a Scope for the given organization and project.
func New(organizationID, projectID string) Scope {
	return Scope{OrganizationID: organizationID, ProjectID: projectID}
}

// Validate checks that both partition keys are present.
func (s Scope) Validate() error {
	if s.OrganizationID == "" || s.ProjectID == "" {
		return errors.MissingScope()
	}
	return nil
}

// Key returns a stable string key for the scope, used for per-scope locking.
func (s Scope) Key() string {
	return s.OrganizationID + "/" + s.ProjectID
}

type contextKey string

const scopeKey contextKey = "tenant_scope"

// WithScope attaches a scope to the context. Only transport middleware
// should call this; everything below the handler layer takes Scope values.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext extracts the scope placed by transport middleware.
func FromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey).(Scope)
	if !ok {
		return Scope{}, errors.MissingScope()
	}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}
