// Package coordinates stores world coordinate descriptions: one group per
// coordinate below a CoordinatesGroup.
package coordinates

import (
	"fmt"

	"github.com/robert-malhotra/go-lofar-dal/dal"
)

// Kind tags the coordinate variant.
type Kind int

const (
	Direction Kind = iota
	Linear
	Tabular
	Stokes
	Spectral
)

var kindNames = [...]string{"Direction", "Linear", "Tabular", "Stokes", "Spectral"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNDEFINED"
	}
	return kindNames[k]
}

// ParseKind maps a COORDINATE_TYPE value back to its kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return -1, dal.ErrMismatch.New("coordinate type " + s)
}

// Axes describes the world axes of a coordinate. PC is the linear
// transformation matrix in row-major order.
type Axes struct {
	Names     []string  `dal:"AXIS_NAMES"`
	Units     []string  `dal:"AXIS_UNITS"`
	RefValue  []float64 `dal:"REFERENCE_VALUE"`
	RefPixel  []float64 `dal:"REFERENCE_PIXEL"`
	Increment []float64 `dal:"INCREMENT"`
	PC        []float64 `dal:"PC"`
}

// NewAxes returns n undefined axes with an identity transformation.
func NewAxes(n int) Axes {
	a := Axes{
		Names:     make([]string, n),
		Units:     make([]string, n),
		RefValue:  make([]float64, n),
		RefPixel:  make([]float64, n),
		Increment: make([]float64, n),
		PC:        make([]float64, n*n),
	}
	for i := 0; i < n; i++ {
		a.Names[i], a.Units[i] = "UNDEFINED", "UNDEFINED"
		a.Increment[i] = 1
		a.PC[i*n+i] = 1
	}
	return a
}

// Len returns the number of axes.
func (a Axes) Len() int { return len(a.Names) }

func (a Axes) validate() error {
	n := a.Len()
	for name, l := range map[string]int{
		"units":           len(a.Units),
		"reference value": len(a.RefValue),
		"reference pixel": len(a.RefPixel),
		"increment":       len(a.Increment),
	} {
		if l != n {
			return dal.ErrMismatch.New(fmt.Sprintf("%d axis names, %d %s", n, l, name))
		}
	}
	if len(a.PC) != n*n {
		return dal.ErrMismatch.New(fmt.Sprintf("PC of %d elements for %d axes", len(a.PC), n))
	}
	return nil
}

// DirectionParams is the payload of a Direction coordinate.
type DirectionParams struct {
	Equinox    string  `dal:"EQUINOX"`
	System     string  `dal:"SYSTEM"`
	Projection string  `dal:"PROJECTION"`
	LongPole   float64 `dal:"LONGPOLE"`
	LatPole    float64 `dal:"LATPOLE"`
}

// TabularParams is the payload of a Tabular coordinate: world values
// listed at pixel values.
type TabularParams struct {
	PixelValues []float64 `dal:"PIXEL_VALUES"`
	WorldValues []float64 `dal:"WORLD_VALUES"`
}

// StokesParams is the payload of a Stokes coordinate.
type StokesParams struct {
	Values []string `dal:"STOKES_VALUES"`
}

// SpectralParams is the payload of a Spectral coordinate.
type SpectralParams struct {
	System            string  `dal:"SYSTEM"`
	RestFrequency     float64 `dal:"REST_FREQUENCY"`
	RestFrequencyUnit string  `dal:"REST_FREQUENCY_UNIT"`
}

// Coordinate is a tagged variant: Kind selects which payload is set.
// Linear coordinates carry none.
type Coordinate struct {
	Kind      Kind
	Axes      Axes
	Direction *DirectionParams
	Tabular   *TabularParams
	Stokes    *StokesParams
	Spectral  *SpectralParams
}

// NewDirection returns a two-axis celestial coordinate.
func NewDirection(system, projection string) *Coordinate {
	axes := NewAxes(2)
	axes.Names = []string{"Longitude", "Latitude"}
	axes.Units = []string{"deg", "deg"}
	return &Coordinate{
		Kind: Direction,
		Axes: axes,
		Direction: &DirectionParams{
			Equinox:    "J2000",
			System:     system,
			Projection: projection,
			LongPole:   0,
			LatPole:    90,
		},
	}
}

// NewLinear returns a linear coordinate of n axes.
func NewLinear(n int) *Coordinate {
	return &Coordinate{Kind: Linear, Axes: NewAxes(n)}
}

// NewTabular returns a one-axis coordinate interpolating world between
// pixel values.
func NewTabular(name, unit string, pixel, world []float64) *Coordinate {
	axes := NewAxes(1)
	axes.Names, axes.Units = []string{name}, []string{unit}
	return &Coordinate{
		Kind:    Tabular,
		Axes:    axes,
		Tabular: &TabularParams{PixelValues: pixel, WorldValues: world},
	}
}

// NewStokes returns a polarisation axis with the given components.
func NewStokes(values ...string) *Coordinate {
	axes := NewAxes(1)
	axes.Names = []string{"Stokes"}
	return &Coordinate{Kind: Stokes, Axes: axes, Stokes: &StokesParams{Values: values}}
}

// NewSpectral returns a frequency axis in the given reference system.
func NewSpectral(system string) *Coordinate {
	axes := NewAxes(1)
	axes.Names, axes.Units = []string{"Frequency"}, []string{"Hz"}
	return &Coordinate{
		Kind:     Spectral,
		Axes:     axes,
		Spectral: &SpectralParams{System: system, RestFrequencyUnit: "Hz"},
	}
}

// payload returns the record of the variant selected by Kind.
func (c *Coordinate) payload() (any, error) {
	var p any
	switch c.Kind {
	case Direction:
		if c.Direction == nil {
			c.Direction = &DirectionParams{}
		}
		p = c.Direction
	case Linear:
		return nil, nil
	case Tabular:
		if c.Tabular == nil {
			c.Tabular = &TabularParams{}
		}
		p = c.Tabular
	case Stokes:
		if c.Stokes == nil {
			c.Stokes = &StokesParams{}
		}
		p = c.Stokes
	case Spectral:
		if c.Spectral == nil {
			c.Spectral = &SpectralParams{}
		}
		p = c.Spectral
	default:
		return nil, dal.ErrMismatch.New("coordinate type " + c.Kind.String())
	}
	return p, nil
}

// Validate checks the axes against each other and against the kind.
func (c *Coordinate) Validate() error {
	if err := c.Axes.validate(); err != nil {
		return err
	}
	switch c.Kind {
	case Direction:
		if c.Axes.Len() != 2 {
			return dal.ErrMismatch.New(fmt.Sprintf("direction coordinate with %d axes", c.Axes.Len()))
		}
	case Tabular:
		if c.Tabular != nil && len(c.Tabular.PixelValues) != len(c.Tabular.WorldValues) {
			return dal.ErrMismatch.New("tabular pixel and world values differ in length")
		}
	case Stokes, Spectral:
		if c.Axes.Len() != 1 {
			return dal.ErrMismatch.New(fmt.Sprintf("%s coordinate with %d axes", c.Kind, c.Axes.Len()))
		}
	}
	return nil
}

// Write stores c as attributes of loc.
func Write(loc dal.Location, c *Coordinate) error {
	if err := c.Validate(); err != nil {
		dal.Logger().WithField("path", loc.Path()).Error(err.Error())
		return err
	}
	p, err := c.payload()
	if err != nil {
		return err
	}
	if err := dal.SetAttribute(loc, "COORDINATE_TYPE", c.Kind.String()); err != nil {
		return err
	}
	if err := dal.SetAttribute(loc, "NOF_AXES", uint32(c.Axes.Len())); err != nil {
		return err
	}
	if err := dal.WriteRecord(loc, &c.Axes); err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	return dal.WriteRecord(loc, p)
}

// Read loads the coordinate stored on loc.
func Read(loc dal.Location) (*Coordinate, error) {
	name, err := dal.GetAttribute[string](loc, "COORDINATE_TYPE")
	if err != nil {
		return nil, err
	}
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	c := &Coordinate{Kind: kind}
	if err := dal.ReadRecord(loc, &c.Axes); err != nil {
		return nil, err
	}
	p, err := c.payload()
	if err != nil {
		return nil, err
	}
	if p != nil {
		if err := dal.ReadRecord(loc, p); err != nil {
			return nil, err
		}
	}
	return c, nil
}
