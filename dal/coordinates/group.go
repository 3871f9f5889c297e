package coordinates

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

// GroupName is the link name of the coordinates group below its parent.
const GroupName = "Coordinates"

// CoordinateName returns the group name of the i-th coordinate.
func CoordinateName(i int) string { return fmt.Sprintf("Coordinate%d", i) }

// Reference holds where and when the coordinates are referenced.
type Reference struct {
	LocationValue []float64 `dal:"REF_LOCATION_VALUE"`
	LocationUnit  []string  `dal:"REF_LOCATION_UNIT"`
	LocationFrame string    `dal:"REF_LOCATION_FRAME"`
	TimeValue     float64   `dal:"REF_TIME_VALUE"`
	TimeUnit      string    `dal:"REF_TIME_UNIT"`
	TimeFrame     string    `dal:"REF_TIME_FRAME"`
}

// Group is an open CoordinatesGroup.
type Group struct {
	*dal.Group
}

// OpenGroup opens the coordinates group below parent, creating it with its
// defaults when create is set.
func OpenGroup(parent dal.Location, create bool) (*Group, error) {
	g, err := dal.OpenGroup(parent, GroupName, schema.CoordinatesGroup, create)
	if err != nil {
		return nil, err
	}
	return &Group{g}, nil
}

// Len returns the number of coordinates.
func (g *Group) Len() (int, error) {
	n, err := dal.GetAttribute[uint32](g, "NOF_COORDINATES")
	return int(n), err
}

// Add stores c as the next coordinate and updates the counters and the
// type list. It returns the index of the new coordinate.
func (g *Group) Add(c *Coordinate) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	n, err := g.Len()
	if err != nil {
		return 0, err
	}
	axes, err := dal.GetAttribute[uint32](g, "NOF_AXES")
	if err != nil {
		return 0, err
	}
	types, err := dal.GetAttributeVector[string](g, "COORDINATE_TYPES")
	if err != nil {
		return 0, err
	}

	cg, err := dal.OpenGroup(g, CoordinateName(n), schema.Coordinate, true)
	if err != nil {
		return 0, err
	}
	defer cg.Close()
	if err := Write(cg, c); err != nil {
		return 0, err
	}

	if n == 0 {
		types = nil
	}
	types = append(types, c.Kind.String())
	if err := dal.SetAttributeVector(g, "COORDINATE_TYPES", types); err != nil {
		return 0, err
	}
	if err := dal.SetAttribute(g, "NOF_AXES", axes+uint32(c.Axes.Len())); err != nil {
		return 0, err
	}
	if err := dal.SetAttribute(g, "NOF_COORDINATES", uint32(n+1)); err != nil {
		return 0, err
	}
	return n, nil
}

// Coordinate reads the i-th coordinate.
func (g *Group) Coordinate(i int) (*Coordinate, error) {
	cg, err := dal.OpenGroup(g, CoordinateName(i), schema.Coordinate, false)
	if err != nil {
		return nil, err
	}
	defer cg.Close()
	return Read(cg)
}

// Coordinates reads all coordinates in index order.
func (g *Group) Coordinates() ([]*Coordinate, error) {
	n, err := g.Len()
	if err != nil {
		return nil, err
	}
	out := make([]*Coordinate, n)
	for i := range out {
		if out[i], err = g.Coordinate(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Reference reads the reference location and time.
func (g *Group) Reference() (*Reference, error) {
	r := &Reference{}
	if err := dal.ReadRecord(g, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SetReference writes the reference location and time.
func (g *Group) SetReference(r *Reference) error {
	return dal.WriteRecord(g, r)
}

// Summary writes the reference and the coordinate types to w.
func (g *Group) Summary(w io.Writer) error {
	r, err := g.Reference()
	if err != nil {
		return err
	}
	types, err := dal.GetAttributeVector[string](g, "COORDINATE_TYPES")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "[CoordinatesGroup] Summary of internal parameters.")
	fmt.Fprintf(w, "-- Path                = %s\n", g.Path())
	fmt.Fprintf(w, "-- Ref. location value = %v\n", r.LocationValue)
	fmt.Fprintf(w, "-- Ref. location unit  = %v\n", r.LocationUnit)
	fmt.Fprintf(w, "-- Ref. location frame = %s\n", r.LocationFrame)
	fmt.Fprintf(w, "-- Ref. time value     = %v\n", r.TimeValue)
	fmt.Fprintf(w, "-- Ref. time unit      = %s\n", r.TimeUnit)
	fmt.Fprintf(w, "-- Ref. time frame     = %s\n", r.TimeFrame)
	fmt.Fprintf(w, "-- Coordinate types    = %v\n", types)
	return nil
}
