package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeFor(t *testing.T) {
	admin := ScopeFor(Identity{UserID: 7, Role: RoleAdmin})
	require.True(t, admin.All)

	commercial := ScopeFor(Identity{UserID: 7, Role: RoleCommercial})
	require.False(t, commercial.All)
	require.Equal(t, int64(7), commercial.OwnerID)
}

func TestScopeOwnerIgnoresRole(t *testing.T) {
	scope := ScopeOwner(12)
	require.False(t, scope.All)
	require.Equal(t, int64(12), scope.OwnerID)
}
