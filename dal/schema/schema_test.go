package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLoads(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, 10)
	assert.Equal(t, Station, kinds[0])
	for _, k := range kinds {
		s, err := Lookup(k)
		require.NoError(t, err, k)
		assert.Equal(t, k, s.Kind)
		assert.NotEmpty(t, s.Fields, k)
	}
	_, err := Lookup("Nonsense")
	assert.Error(t, err)
}

func TestStationDefaults(t *testing.T) {
	s, err := Lookup(Station)
	require.NoError(t, err)
	assert.Equal(t, []string{"TELESCOPE", "OBSERVER", "PROJECT", "OBS_ID", "OBS_MODE"}, s.Names())
	attrs := s.Attributes()
	assert.NotContains(t, attrs, "NUM_ANTS")
	assert.NotContains(t, attrs, "NUMSAMPS")
	for _, f := range s.Fields {
		v, err := f.Value()
		require.NoError(t, err)
		assert.Equal(t, []string{"UNDEFINED"}, v, f.Name)
	}
}

func TestStatBeamDefaults(t *testing.T) {
	s, err := Lookup(StatBeam)
	require.NoError(t, err)
	want := map[string]any{
		"GROUPTYPE":          []string{"StatBeam"},
		"NOF_STATIONS":       []int32{0},
		"STATIONS_LIST":      []string{"UNDEFINED"},
		"TRACKING":           []string{"OFF"},
		"CLOCK_RATE_UNIT":    []string{"MHz"},
		"SAMPLING_TIME_UNIT": []string{"us"},
		"POINT_RA":           []float64{0},
	}
	for name, v := range want {
		f, ok := s.Field(name)
		require.True(t, ok, name)
		got, err := f.Value()
		require.NoError(t, err)
		assert.Equal(t, v, got, name)
	}
}

func TestVectorDefaults(t *testing.T) {
	s, err := Lookup(CoordinatesGroup)
	require.NoError(t, err)
	f, ok := s.Field("REF_LOCATION_VALUE")
	require.True(t, ok)
	v, err := f.Value()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, v)

	c, err := Lookup(Coordinate)
	require.NoError(t, err)
	f, _ = c.Field("AXIS_NAMES")
	v, err = f.Value()
	require.NoError(t, err)
	assert.Equal(t, []string{}, v)
}

func TestFieldValueErrors(t *testing.T) {
	tests := []struct {
		name  string
		field Field
	}{
		{"unknown type", Field{Type: "complex", Default: 0}},
		{"string into int", Field{Type: Int32, Default: "zero"}},
		{"out of range", Field{Type: Int16, Default: 40000}},
		{"negative unsigned", Field{Type: Uint32, Default: -1}},
		{"scalar list", Field{Type: Float64, Default: []any{1}}},
		{"vector scalar", Field{Type: Float64, Vector: true, Default: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.field.Value()
			assert.Error(t, err)
		})
	}

	v, err := Field{Type: Float32, Default: 3}.Value()
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)

	v, err = Field{Type: Uint16, Vector: true, Default: []any{int64(1), 2}}.Value()
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, v)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, _, err := parse([]byte(`
kinds:
  - kind: A
    fields:
      - {name: X, type: int32, default: 0}
      - {name: X, type: int32, default: 1}
`))
	assert.ErrorContains(t, err, "declared twice")

	_, _, err = parse([]byte(`
kinds:
  - kind: A
    fields:
      - {name: X, type: int32, default: 0, unit: m}
`))
	assert.Error(t, err)
}
