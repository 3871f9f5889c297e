// Package tbb reads and writes transient buffer board dumps: one group per
// station holding one int16 time series per dipole.
package tbb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	"github.com/robert-malhotra/go-lofar-dal/dal/common"
	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

// DefaultLength is the number of samples of a dipole created without an
// explicit length.
const DefaultLength = 1024

const stationPrefix = "Station"

// StationName returns the group name of station id.
func StationName(id int) string { return fmt.Sprintf("%s%03d", stationPrefix, id) }

// DipoleID identifies a dipole by station, RSP board and receiver unit.
type DipoleID struct {
	Station uint32
	RSP     uint32
	RCU     uint32
}

// DipoleName returns the dataset name of a dipole.
func DipoleName(station, rsp, rcu uint32) string {
	return fmt.Sprintf("%03d%03d%03d", station, rsp, rcu)
}

// Name returns the dataset name of the dipole.
func (id DipoleID) Name() string { return DipoleName(id.Station, id.RSP, id.RCU) }

func (id DipoleID) valid() bool {
	return id.Station < 1000 && id.RSP < 1000 && id.RCU < 1000
}

// ParseDipoleName is the inverse of DipoleName.
func ParseDipoleName(name string) (DipoleID, error) {
	var id DipoleID
	if len(name) != 9 {
		return id, dal.ErrMismatch.New("dipole name " + name)
	}
	parts := [3]*uint32{&id.Station, &id.RSP, &id.RCU}
	for i, p := range parts {
		n, err := strconv.ParseUint(name[3*i:3*i+3], 10, 32)
		if err != nil {
			return id, dal.ErrMismatch.New("dipole name " + name)
		}
		*p = uint32(n)
	}
	return id, nil
}

// Create creates a TBB file at path with the common root attributes. A nil
// attrs writes the defaults.
func Create(path string, attrs *common.CommonAttributes) (*dal.File, error) {
	f, err := dal.Create(path, dal.WithRootKind(schema.CommonAttributes))
	if err != nil {
		return nil, err
	}
	if attrs != nil {
		err = attrs.Write(f)
	}
	if err == nil {
		err = dal.SetAttribute(f, "FILETYPE", common.TBB.String())
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// OpenStation opens the group of station id below the root of file.
func OpenStation(file dal.Location, id int, create bool) (*dal.Group, error) {
	return dal.OpenGroup(file, StationName(id), schema.TBBStation, create)
}

// Stations returns the ids of the station groups of f in ascending order.
func Stations(f *dal.File) ([]int, error) {
	names, err := f.Root().MemberList(dal.Groups)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, stationPrefix)
		if !ok {
			continue
		}
		if id, err := strconv.Atoi(rest); err == nil {
			out = append(out, id)
		}
	}
	return out, nil
}

// Dipoles lists the dipoles stored in a station group.
func Dipoles(station *dal.Group) ([]DipoleID, error) {
	names, err := station.MemberList(dal.Datasets)
	if err != nil {
		return nil, err
	}
	var out []DipoleID
	for _, name := range names {
		if id, err := ParseDipoleName(name); err == nil {
			out = append(out, id)
		}
	}
	return out, nil
}
