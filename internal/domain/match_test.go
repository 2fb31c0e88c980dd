package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchResult(t *testing.T) {
	m := NewMatchResult(4, 1)
	m.Add(2)
	m.Add(1)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []int{1, 2, 4}, m.Indices())
	assert.True(t, m.Contains(2))
	assert.False(t, m.Contains(3))
	assert.InDelta(t, 37.5, m.Rate(8), 1e-9)
	assert.Zero(t, m.Rate(0))

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "[1,2,4]", string(b))
}

func TestMatchResult_Nil(t *testing.T) {
	var m *MatchResult
	assert.False(t, m.Contains(0))
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Indices())

	var zero MatchResult
	zero.Add(7)
	assert.True(t, zero.Contains(7))

	b, err := json.Marshal(NewMatchResult())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}
