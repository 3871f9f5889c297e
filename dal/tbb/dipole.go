package tbb

import (
	"fmt"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

// Header holds the acquisition attributes of a dipole.
type Header struct {
	StationID       uint32 `dal:"STATION_ID"`
	RSPID           uint32 `dal:"RSP_ID"`
	RCUID           uint32 `dal:"RCU_ID"`
	Time            uint32 `dal:"TIME"`
	SampleNumber    uint32 `dal:"SAMPLE_NUMBER"`
	SamplesPerFrame uint32 `dal:"SAMPLES_PER_FRAME"`
	NyquistZone     uint32 `dal:"NYQUIST_ZONE"`
	DataLength      uint32 `dal:"DATA_LENGTH"`
	Feed            string `dal:"FEED"`
}

// Position is the antenna position.
type Position struct {
	Value []float64 `dal:"ANTENNA_POSITION_VALUE"`
	Unit  []string  `dal:"ANTENNA_POSITION_UNIT"`
	Frame string    `dal:"ANTENNA_POSITION_FRAME"`
}

// Orientation is the antenna orientation.
type Orientation struct {
	Value []float64 `dal:"ANTENNA_ORIENTATION_VALUE"`
	Unit  []string  `dal:"ANTENNA_ORIENTATION_UNIT"`
	Frame string    `dal:"ANTENNA_ORIENTATION_FRAME"`
}

// Dipole is the time series of one dipole.
type Dipole struct {
	*dal.Array
	ID DipoleID
}

// CreateDipole creates the dataset of dipole id in station, holding length
// samples (DefaultLength when zero), and writes its default attributes.
func CreateDipole(station dal.Location, id DipoleID, length uint64) (*Dipole, error) {
	if !id.valid() {
		err := dal.ErrMismatch.New(fmt.Sprintf("dipole id %+v", id))
		dal.Logger().WithField("path", station.Path()).Error(err.Error())
		return nil, err
	}
	if length == 0 {
		length = DefaultLength
	}
	a, err := dal.CreateArray(station, id.Name(), []uint64{length}, dal.Int16, []uint64{length})
	if err != nil {
		return nil, err
	}
	d := &Dipole{Array: a, ID: id}
	if err := dal.ApplySchema(a, schema.TBBDipole); err != nil {
		return nil, err
	}
	h := &Header{
		StationID:   id.Station,
		RSPID:       id.RSP,
		RCUID:       id.RCU,
		NyquistZone: 1,
		DataLength:  uint32(length),
		Feed:        "UNDEFINED",
	}
	if err := d.SetHeader(h); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenDipole opens the dataset of dipole id in station.
func OpenDipole(station dal.Location, id DipoleID) (*Dipole, error) {
	a, err := dal.OpenArray(station, id.Name())
	if err != nil {
		return nil, err
	}
	return &Dipole{Array: a, ID: id}, nil
}

// Header reads the acquisition attributes.
func (d *Dipole) Header() (*Header, error) {
	h := &Header{}
	if err := dal.ReadRecord(d, h); err != nil {
		return nil, err
	}
	return h, nil
}

// SetHeader writes the acquisition attributes.
func (d *Dipole) SetHeader(h *Header) error {
	return dal.WriteRecord(d, h)
}

// Position reads the antenna position.
func (d *Dipole) Position() (*Position, error) {
	p := &Position{}
	if err := dal.ReadRecord(d, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPosition writes the antenna position.
func (d *Dipole) SetPosition(p *Position) error {
	return dal.WriteRecord(d, p)
}

// Orientation reads the antenna orientation.
func (d *Dipole) Orientation() (*Orientation, error) {
	o := &Orientation{}
	if err := dal.ReadRecord(d, o); err != nil {
		return nil, err
	}
	return o, nil
}

// SetOrientation writes the antenna orientation.
func (d *Dipole) SetOrientation(o *Orientation) error {
	return dal.WriteRecord(d, o)
}

// ReadData reads n samples starting at start.
func (d *Dipole) ReadData(start uint64, n int) ([]int16, error) {
	out := make([]int16, n)
	if err := d.ReadRegion([]uint64{start}, []uint64{uint64(n)}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteData writes samples starting at start, growing the dataset and its
// DATA_LENGTH when they run past the end.
func (d *Dipole) WriteData(start uint64, samples []int16) error {
	end := start + uint64(len(samples))
	if shape := d.Shape(); len(shape) == 1 && end > shape[0] {
		if err := d.Extend([]uint64{end}); err != nil {
			return err
		}
		if err := dal.SetAttribute(d, "DATA_LENGTH", uint32(end)); err != nil {
			return err
		}
	}
	return d.Write(start, samples)
}
