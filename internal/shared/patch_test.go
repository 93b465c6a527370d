package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatchAbsentNullValue(t *testing.T) {
	type payload struct {
		Name  Patch[string]  `json:"name,omitempty"`
		Total Patch[float64] `json:"total,omitempty"`
	}

	var absent payload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.False(t, absent.Name.Set)
	require.False(t, absent.Total.Set)

	var null payload
	require.NoError(t, json.Unmarshal([]byte(`{"total":null}`), &null))
	require.False(t, null.Name.Set)
	require.True(t, null.Total.Set)
	require.False(t, null.Total.Valid)
	require.Zero(t, null.Total.Value)

	var set payload
	require.NoError(t, json.Unmarshal([]byte(`{"name":"wedding","total":800.5}`), &set))
	require.True(t, set.Name.Set)
	require.True(t, set.Name.Valid)
	require.Equal(t, "wedding", set.Name.Value)
	require.Equal(t, 800.5, set.Total.Value)
}

func TestPatchRejectsWrongType(t *testing.T) {
	var p struct {
		Total Patch[float64] `json:"total"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"total":"abc"}`), &p))
}

func TestPatchPtr(t *testing.T) {
	require.Nil(t, Patch[int]{}.Ptr())
	require.Nil(t, PatchNull[int]().Ptr())

	ptr := PatchValue(42).Ptr()
	require.NotNil(t, ptr)
	require.Equal(t, 42, *ptr)
}
