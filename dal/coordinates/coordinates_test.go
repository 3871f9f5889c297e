package coordinates

import (
	"bytes"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-lofar-dal/dal"
)

func quiet(t *testing.T) {
	l, _ := logtest.NewNullLogger()
	prev := dal.Logger()
	dal.SetLogger(l)
	t.Cleanup(func() { dal.SetLogger(prev) })
}

func newFile(t *testing.T) (*dal.File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.h5")
	f, err := dal.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, path
}

func TestKindNames(t *testing.T) {
	for k := Direction; k <= Spectral; k++ {
		back, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
	assert.Equal(t, "UNDEFINED", Kind(9).String())
	_, err := ParseKind("Polar")
	assert.True(t, dal.ErrMismatch.Is(err))
}

func TestNewAxes(t *testing.T) {
	a := NewAxes(3)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, a.PC)
	assert.Equal(t, []float64{1, 1, 1}, a.Increment)
	assert.NoError(t, a.validate())

	a.PC = a.PC[:4]
	assert.True(t, dal.ErrMismatch.Is(a.validate()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		c    *Coordinate
		ok   bool
	}{
		{"direction", NewDirection("J2000", "SIN"), true},
		{"linear", NewLinear(4), true},
		{"stokes", NewStokes("I", "Q", "U", "V"), true},
		{"direction with three axes", &Coordinate{Kind: Direction, Axes: NewAxes(3)}, false},
		{"spectral with two axes", &Coordinate{Kind: Spectral, Axes: NewAxes(2)}, false},
		{"tabular lengths", NewTabular("Time", "s", []float64{0, 1}, []float64{0}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, dal.ErrMismatch.Is(err), "got %v", err)
			}
		})
	}
}

func TestWriteRead(t *testing.T) {
	f, _ := newFile(t)
	coords := []*Coordinate{
		NewDirection("J2000", "SIN"),
		NewLinear(2),
		NewTabular("Time", "s", []float64{0, 10, 20}, []float64{0.5, 1.5, 3}),
		NewStokes("I", "V"),
		NewSpectral("TOPO"),
	}
	for _, c := range coords {
		t.Run(c.Kind.String(), func(t *testing.T) {
			g, err := dal.OpenGroup(f, c.Kind.String(), "", true)
			require.NoError(t, err)
			require.NoError(t, Write(g, c))

			n, err := dal.GetAttribute[uint32](g, "NOF_AXES")
			require.NoError(t, err)
			assert.Equal(t, uint32(c.Axes.Len()), n)

			back, err := Read(g)
			require.NoError(t, err)
			assert.Equal(t, c, back)
		})
	}
}

func TestGroup(t *testing.T) {
	f, path := newFile(t)
	g, err := OpenGroup(f, true)
	require.NoError(t, err)
	assert.Equal(t, "/Coordinates", g.Path())

	n, err := g.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
	r, err := g.Reference()
	require.NoError(t, err)
	assert.Equal(t, "UTC", r.TimeFrame)
	assert.Equal(t, []float64{0, 0, 0}, r.LocationValue)

	r.LocationValue = []float64{3826577.1, 461022.9, 5064892.7}
	r.LocationUnit = []string{"m", "m", "m"}
	r.LocationFrame = "ITRF"
	require.NoError(t, g.SetReference(r))

	dir := NewDirection("J2000", "SIN")
	spec := NewSpectral("TOPO")
	i, err := g.Add(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = g.Add(spec)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	require.NoError(t, f.Close())

	f, err = dal.Open(path)
	require.NoError(t, err)
	defer f.Close()
	g, err = OpenGroup(f, false)
	require.NoError(t, err)

	types, err := dal.GetAttributeVector[string](g, "COORDINATE_TYPES")
	require.NoError(t, err)
	assert.Equal(t, []string{"Direction", "Spectral"}, types)
	axes, err := dal.GetAttribute[uint32](g, "NOF_AXES")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), axes)

	all, err := g.Coordinates()
	require.NoError(t, err)
	assert.Equal(t, []*Coordinate{dir, spec}, all)

	members, err := g.MemberList(dal.Groups)
	require.NoError(t, err)
	assert.Equal(t, []string{"Coordinate0", "Coordinate1"}, members)

	var buf bytes.Buffer
	require.NoError(t, g.Summary(&buf))
	assert.Contains(t, buf.String(), "Ref. location frame = ITRF")
	assert.Contains(t, buf.String(), "Coordinate types    = [Direction Spectral]")
}

func TestGroupErrors(t *testing.T) {
	quiet(t)
	f, _ := newFile(t)

	_, err := OpenGroup(f, false)
	assert.True(t, dal.ErrNotFound.Is(err), "got %v", err)

	g, err := OpenGroup(f, true)
	require.NoError(t, err)
	_, err = g.Add(&Coordinate{Kind: Direction, Axes: NewAxes(1)})
	assert.True(t, dal.ErrMismatch.Is(err), "got %v", err)
	_, err = g.Coordinate(0)
	assert.True(t, dal.ErrNotFound.Is(err), "got %v", err)
}
