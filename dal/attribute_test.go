package dal

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeScalars(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, SetAttribute(f, "I16", int16(-7)))
	require.NoError(t, SetAttribute(f, "I32", int32(42)))
	require.NoError(t, SetAttribute(f, "U64", uint64(1<<40)))
	require.NoError(t, SetAttribute(f, "F64", 2.5))
	require.NoError(t, SetAttribute(f, "NAME", "CS302"))
	require.NoError(t, SetAttribute(f, "FLAG", true))

	i16, err := GetAttribute[int16](f, "I16")
	require.NoError(t, err)
	assert.Equal(t, int16(-7), i16)

	u64, err := GetAttribute[uint64](f, "U64")
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)

	name, err := GetAttribute[string](f, "NAME")
	require.NoError(t, err)
	assert.Equal(t, "CS302", name)

	flag, err := GetAttribute[bool](f, "FLAG")
	require.NoError(t, err)
	assert.True(t, flag)

	// Booleans are stored as integers.
	stored, err := GetAttribute[int32](f, "FLAG")
	require.NoError(t, err)
	assert.Equal(t, int32(1), stored)

	t.Run("numeric conversion", func(t *testing.T) {
		asFloat, err := GetAttribute[float64](f, "I32")
		require.NoError(t, err)
		assert.Equal(t, 42.0, asFloat)

		asInt, err := GetAttribute[int64](f, "F64")
		require.NoError(t, err)
		assert.Equal(t, int64(2), asInt)
	})

	t.Run("nonzero is true", func(t *testing.T) {
		require.NoError(t, SetAttribute(f, "COUNT", int32(3)))
		b, err := GetAttribute[bool](f, "COUNT")
		require.NoError(t, err)
		assert.True(t, b)
	})

	t.Run("scalar reads as vector", func(t *testing.T) {
		vs, err := GetAttributeVector[int32](f, "I32")
		require.NoError(t, err)
		assert.Equal(t, []int32{42}, vs)
	})
}

func TestAttributeVectors(t *testing.T) {
	f := newTestFile(t)

	stations := []string{"CS001", "CS002", "RS106"}
	require.NoError(t, SetAttributeVector(f, "STATIONS_LIST", stations))
	require.NoError(t, SetAttributeVector(f, "POSITION", []float64{1.5, -2, 3e6}))
	require.NoError(t, SetAttributeVector(f, "FLAGS", []bool{true, false, true}))
	require.NoError(t, SetAttributeVector[int32](f, "EMPTY", nil))

	got, err := GetAttributeVector[string](f, "STATIONS_LIST")
	require.NoError(t, err)
	assert.Equal(t, stations, got)

	pos, err := GetAttributeVector[float32](f, "POSITION")
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2, 3e6}, pos)

	flags, err := GetAttributeVector[bool](f, "FLAGS")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, flags)

	empty, err := GetAttributeVector[int32](f, "EMPTY")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAttributeOverwrite(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, SetAttributeVector(f, "VALUE", []int32{1, 2, 3}))
	require.NoError(t, SetAttribute(f, "VALUE", "now a string"))

	s, err := GetAttribute[string](f, "VALUE")
	require.NoError(t, err)
	assert.Equal(t, "now a string", s)

	names, err := AttributeNames(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"VALUE"}, names)
}

func TestAttributeMismatch(t *testing.T) {
	captureLog(t)
	f := newTestFile(t)
	require.NoError(t, SetAttribute(f, "NAME", "CS302"))
	require.NoError(t, SetAttribute(f, "N", int32(5)))
	require.NoError(t, SetAttributeVector(f, "V", []float64{1, 2}))
	require.NoError(t, SetAttributeVector[float64](f, "NONE", nil))

	_, err := GetAttribute[int32](f, "NAME")
	assert.True(t, ErrMismatch.Is(err), "string as number: %v", err)

	_, err = GetAttributeVector[string](f, "N")
	assert.True(t, ErrMismatch.Is(err), "number as string: %v", err)

	_, err = GetAttribute[float64](f, "V")
	assert.True(t, ErrMismatch.Is(err), "vector as scalar: %v", err)

	_, err = GetAttribute[float64](f, "NONE")
	assert.True(t, ErrMismatch.Is(err), "empty as scalar: %v", err)
}

func TestAttributeDelete(t *testing.T) {
	captureLog(t)
	f := newTestFile(t)
	require.NoError(t, SetAttribute(f, "A", int32(1)))
	require.NoError(t, SetAttribute(f, "B", int32(2)))

	require.NoError(t, DeleteAttribute(f, "A"))
	assert.False(t, HasAttribute(f, "A"))
	assert.True(t, HasAttribute(f, "B"))

	err := DeleteAttribute(f, "A")
	assert.True(t, ErrNotFound.Is(err), "got %v", err)
}

func TestAttributeFailuresAreLogged(t *testing.T) {
	hook := captureLog(t)
	f := newTestFile(t)
	g, err := OpenGroup(f, "Beam", "", true)
	require.NoError(t, err)

	_, err = GetAttribute[int32](g, "MISSING")
	require.Error(t, err)
	assert.True(t, ErrNotFound.Is(err))

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "get attribute", entry.Data["op"])
	assert.Equal(t, "/Beam", entry.Data["path"])
	assert.Equal(t, "MISSING", entry.Data["name"])
	assert.Equal(t, err.Error(), entry.Message)
}
