// Package bf reads and writes beam-formed data files: primary pointings
// holding beams, a system log, and Stokes arrays per beam.
package bf

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	"github.com/robert-malhotra/go-lofar-dal/dal/common"
	"github.com/robert-malhotra/go-lofar-dal/dal/coordinates"
	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

const (
	pointingPrefix    = "PrimaryPointing"
	beamPrefix        = "Beam"
	stationBeamPrefix = "StationBeam"
	stokesPrefix      = "STOKES_"

	// SysLogName is the link name of the system log group.
	SysLogName = "SysLog"
)

func init() {
	dal.RegisterEmbedded(schema.Beam, openBeamEmbedded)
}

// openBeamEmbedded opens the coordinates group of a beam, creating it with
// the beam. Beams written without one open as they are.
func openBeamEmbedded(g *dal.Group, create bool) error {
	if !create && !g.Has(coordinates.GroupName) {
		return nil
	}
	cg, err := coordinates.OpenGroup(g, create)
	if err != nil {
		return err
	}
	return cg.Close()
}

// PrimaryPointingName returns the group name of pointing id.
func PrimaryPointingName(id int) string { return fmt.Sprintf("%s%03d", pointingPrefix, id) }

// BeamName returns the group name of beam id within its pointing.
func BeamName(id int) string { return fmt.Sprintf("%s%03d", beamPrefix, id) }

// StationBeamName returns the group name of station beam i.
func StationBeamName(i int) string { return fmt.Sprintf("%s%03d", stationBeamPrefix, i) }

// StokesName returns the array name of Stokes component i of a beam.
func StokesName(i int) string { return stokesPrefix + strconv.Itoa(i) }

// Dataset is an open beam-formed data file.
type Dataset struct {
	file *dal.File
}

// Create creates a beam-formed file at path with the common root
// attributes and an empty system log. A nil attrs writes the defaults.
func Create(path string, attrs *common.CommonAttributes) (*Dataset, error) {
	f, err := dal.Create(path, dal.WithRootKind(schema.CommonAttributes))
	if err != nil {
		return nil, err
	}
	d := &Dataset{file: f}
	if err := d.init(attrs); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dataset) init(attrs *common.CommonAttributes) error {
	if attrs != nil {
		if err := attrs.Write(d.file); err != nil {
			return err
		}
	}
	if err := dal.SetAttribute(d.file, "FILETYPE", common.BF.String()); err != nil {
		return err
	}
	log, err := d.OpenSysLog(true)
	if err != nil {
		return err
	}
	return log.Close()
}

// Open opens an existing beam-formed file read-only.
func Open(path string) (*Dataset, error) {
	f, err := dal.Open(path)
	if err != nil {
		return nil, err
	}
	return &Dataset{file: f}, nil
}

// OpenReadWrite opens an existing beam-formed file for modification.
func OpenReadWrite(path string) (*Dataset, error) {
	f, err := dal.OpenReadWrite(path)
	if err != nil {
		return nil, err
	}
	return &Dataset{file: f}, nil
}

// File returns the underlying root file.
func (d *Dataset) File() *dal.File { return d.file }

// CommonAttributes reads the root attributes.
func (d *Dataset) CommonAttributes() (*common.CommonAttributes, error) {
	return common.Read(d.file)
}

// SetCommonAttributes replaces the root attributes.
func (d *Dataset) SetCommonAttributes(c *common.CommonAttributes) error {
	return c.Write(d.file)
}

// OpenSysLog opens the system log group.
func (d *Dataset) OpenSysLog(create bool) (*dal.Group, error) {
	return dal.OpenGroup(d.file, SysLogName, schema.SysLog, create)
}

// OpenPrimaryPointing opens pointing id.
func (d *Dataset) OpenPrimaryPointing(id int, create bool) (*dal.Group, error) {
	return dal.OpenGroup(d.file, PrimaryPointingName(id), schema.PrimaryPointing, create)
}

// PrimaryPointings returns the ids of the pointings in ascending order.
func (d *Dataset) PrimaryPointings() ([]int, error) {
	return ids(d.file.Root(), pointingPrefix)
}

// NofPrimaryPointings returns the number of pointings.
func (d *Dataset) NofPrimaryPointings() (int, error) {
	ps, err := d.PrimaryPointings()
	return len(ps), err
}

// OpenBeam opens beam of pointing. With create, missing groups on the way
// are created and the NOF_BEAMS count of the pointing follows.
func (d *Dataset) OpenBeam(pointing, beam int, create bool) (*dal.Group, error) {
	p, err := d.OpenPrimaryPointing(pointing, create)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	existed := p.Has(BeamName(beam))
	b, err := dal.OpenGroup(p, BeamName(beam), schema.Beam, create)
	if err != nil {
		return nil, err
	}
	if !existed {
		beams, err := ids(p, beamPrefix)
		if err != nil {
			return nil, err
		}
		if err := dal.SetAttribute(p, "NOF_BEAMS", int32(len(beams))); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Beams returns the beam ids of pointing in ascending order.
func (d *Dataset) Beams(pointing int) ([]int, error) {
	p, err := d.OpenPrimaryPointing(pointing, false)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return ids(p, beamPrefix)
}

// OpenStationBeam opens station beam i below parent.
func OpenStationBeam(parent dal.Location, i int, create bool) (*dal.Group, error) {
	return dal.OpenGroup(parent, StationBeamName(i), schema.StatBeam, create)
}

// CreateStokes creates Stokes component i of beam as a float32 array of
// samples by channels, chunked along time, and updates NOF_STOKES.
func CreateStokes(beam *dal.Group, i int, samples, channels uint64, opts ...dal.ArrayOption) (*dal.Array, error) {
	chunk := []uint64{max(1, min(samples, 1<<14)), max(1, channels)}
	a, err := dal.CreateArray(beam, StokesName(i), []uint64{samples, channels}, dal.Float32, chunk, opts...)
	if err != nil {
		return nil, err
	}
	names, err := beam.MemberList(dal.Datasets)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, name := range names {
		if strings.HasPrefix(name, stokesPrefix) {
			n++
		}
	}
	if err := dal.SetAttribute(beam, "NOF_STOKES", int32(n)); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenStokes opens Stokes component i of beam.
func OpenStokes(beam *dal.Group, i int) (*dal.Array, error) {
	return dal.OpenArray(beam, StokesName(i))
}

// Summary writes the pointing and beam layout to w.
func (d *Dataset) Summary(w io.Writer) error {
	fmt.Fprintln(w, "[BF_Dataset] Summary of internal parameters.")
	fmt.Fprintf(w, "-- Filename          = %s\n", d.file.Filename())
	pointings, err := d.PrimaryPointings()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "-- Primary pointings = %d\n", len(pointings))
	for _, p := range pointings {
		beams, err := d.Beams(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "-- %s: %d beams\n", PrimaryPointingName(p), len(beams))
	}
	return nil
}

// Close closes the file.
func (d *Dataset) Close() error {
	return d.file.Close()
}

// ids lists the numeric suffixes of the child groups of g named
// prefix<digits>.
func ids(g *dal.Group, prefix string) ([]int, error) {
	names, err := g.MemberList(dal.Groups)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		if id, err := strconv.Atoi(rest); err == nil && id >= 0 {
			out = append(out, id)
		}
	}
	return out, nil
}
