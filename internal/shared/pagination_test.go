package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, 45)

	require.Equal(t, 1, p.Page)
	require.Equal(t, DefaultPerPage, p.PerPage)
	require.Equal(t, 45, p.Total)
	require.Equal(t, 3, p.TotalPages)
}

func TestNewPaginationExplicitPageSize(t *testing.T) {
	p := NewPagination(2, 10, 25)

	require.Equal(t, 2, p.Page)
	require.Equal(t, 10, p.PerPage)
	require.Equal(t, 3, p.TotalPages)
}
