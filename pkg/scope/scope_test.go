package scope_test

import (
	"context"
	"testing"

	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeValidate(t *testing.T) {
	assert.NoError(t, scope.New("org-1", "proj-1").Validate())
	assert.Error(t, scope.New("", "proj-1").Validate())
	assert.Error(t, scope.New("org-1", "").Validate())
}

func TestScopeKey(t *testing.T) {
	a := scope.New("org-1", "proj-1")
	b := scope.New("org-1", "proj-2")
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), scope.New("org-1", "proj-1").Key())
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()

	_, err := scope.FromContext(ctx)
	assert.True(t, errors.Is(err, errors.ErrNoScope))

	sc := scope.New("org-1", "proj-1")
	got, err := scope.FromContext(scope.WithScope(ctx, sc))
	require.NoError(t, err)
	assert.Equal(t, sc, got)
}
