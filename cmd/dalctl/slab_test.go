package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-lofar-dal/dal"
)

func TestParseSlab(t *testing.T) {
	stages, err := parseSlab("start=0,10 count=5,2", 2)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, dal.SelectSet, stages[0].Op)
	assert.Equal(t, []uint64{0, 10}, stages[0].Slab.Start)
	assert.Equal(t, []uint64{5, 2}, stages[0].Slab.Count)
	assert.Nil(t, stages[0].Slab.Stride)
	assert.Nil(t, stages[0].Slab.Block)

	stages, err = parseSlab("start=0 count=2 | or start=4 count=2 stride=3 block=2 | notb start=1 count=1", 1)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, dal.SelectOr, stages[1].Op)
	assert.Equal(t, []uint64{3}, stages[1].Slab.Stride)
	assert.Equal(t, []uint64{2}, stages[1].Slab.Block)
	assert.Equal(t, dal.SelectNotB, stages[2].Op)
}

func TestParseSlabErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		rank int
	}{
		{"empty", "", 1},
		{"rank", "start=0 count=2", 2},
		{"no count", "start=0", 1},
		{"repeated key", "start=0 start=1 count=1", 1},
		{"unknown key", "offset=1 start=0 count=1", 1},
		{"unknown operator", "start=0 count=1 | bogus start=1 count=1", 1},
		{"missing operator", "start=0 count=1 | start=1 count=1", 1},
		{"dangling", "start=", 1},
		{"negative", "start=-1 count=1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSlab(tt.expr, tt.rank)
			assert.Error(t, err)
		})
	}
}
