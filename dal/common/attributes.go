// Package common holds what every LOFAR data product shares: the root
// attributes and the file naming convention.
package common

import (
	"time"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

// FileDateLayout is the layout of FILEDATE values.
const FileDateLayout = "2006-01-02T15:04:05.0"

// CommonAttributes are the root attributes of a LOFAR data file.
type CommonAttributes struct {
	GroupType          string   `dal:"GROUPTYPE"`
	Filename           string   `dal:"FILENAME"`
	FileType           string   `dal:"FILETYPE"`
	FileDate           string   `dal:"FILEDATE"`
	Telescope          string   `dal:"TELESCOPE"`
	ProjectID          string   `dal:"PROJECT_ID"`
	ProjectTitle       string   `dal:"PROJECT_TITLE"`
	ProjectPI          string   `dal:"PROJECT_PI"`
	ProjectCoI         string   `dal:"PROJECT_CO_I"`
	ProjectContact     string   `dal:"PROJECT_CONTACT"`
	Observer           string   `dal:"OBSERVER"`
	ObservationID      string   `dal:"OBSERVATION_ID"`
	AntennaSet         string   `dal:"ANTENNA_SET"`
	FilterSelection    string   `dal:"FILTER_SELECTION"`
	ClockFrequency     float64  `dal:"CLOCK_FREQUENCY"`
	ClockFrequencyUnit string   `dal:"CLOCK_FREQUENCY_UNIT"`
	Target             string   `dal:"TARGET"`
	SystemVersion      string   `dal:"SYSTEM_VERSION"`
	PipelineName       string   `dal:"PIPELINE_NAME"`
	PipelineVersion    string   `dal:"PIPELINE_VERSION"`
	NofStations        int32    `dal:"NOF_STATIONS"`
	StationsList       []string `dal:"STATIONS_LIST"`
	Notes              string   `dal:"NOTES"`
}

// NewCommonAttributes returns the schema defaults.
func NewCommonAttributes() (*CommonAttributes, error) {
	c := &CommonAttributes{}
	if err := dal.RecordDefaults(schema.CommonAttributes, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Attributes returns the names of the common attributes.
func (c *CommonAttributes) Attributes() map[string]struct{} {
	s, err := schema.Lookup(schema.CommonAttributes)
	if err != nil {
		return nil
	}
	return s.Attributes()
}

// SetFilename records the name and file type of fn.
func (c *CommonAttributes) SetFilename(fn Filename) {
	c.Filename = fn.Name(false)
	c.FileType = fn.Type.String()
	c.ObservationID = fn.ObservationID
}

// SetFileDate records t, in UTC, as the file date.
func (c *CommonAttributes) SetFileDate(t time.Time) {
	c.FileDate = t.UTC().Format(FileDateLayout)
}

// SetStations sets the station list and count together.
func (c *CommonAttributes) SetStations(stations []string) {
	c.StationsList = stations
	c.NofStations = int32(len(stations))
}

// Write stores the attributes on loc, overwriting existing values.
func (c *CommonAttributes) Write(loc dal.Location) error {
	return dal.WriteRecord(loc, c)
}

// Read loads the attributes from loc.
func (c *CommonAttributes) Read(loc dal.Location) error {
	return dal.ReadRecord(loc, c)
}

// Read loads the common attributes of loc.
func Read(loc dal.Location) (*CommonAttributes, error) {
	c := &CommonAttributes{}
	if err := c.Read(loc); err != nil {
		return nil, err
	}
	return c, nil
}
