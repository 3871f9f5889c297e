package common

import (
	"fmt"
	"io"
	"path"
	"strings"

	goerrors "gopkg.in/src-d/go-errors.v1"
)

// ErrInvalidFilename is returned by ParseFilename for names that do not
// follow the L<obsid>[_<descr>]_<type>.<ext> convention.
var ErrInvalidFilename = goerrors.NewKind("invalid filename %q: %s")

// Undefined is how unknown file types and extensions render.
const Undefined = "UNDEFINED"

// FileType marks the contents of a file.
type FileType int

const (
	UV FileType = iota
	Sky
	RM
	NFI
	Dynspec
	BF
	TBB
)

var fileTypeNames = [...]string{"uv", "sky", "rm", "nfi", "dynspec", "bf", "tbb"}

func (t FileType) String() string {
	if t < 0 || int(t) >= len(fileTypeNames) {
		return Undefined
	}
	return fileTypeNames[t]
}

// ParseFileType maps a file type name back to its value.
func ParseFileType(s string) (FileType, bool) {
	for i, name := range fileTypeNames {
		if name == s {
			return FileType(i), true
		}
	}
	return -1, false
}

// Extension is the suffix of a file.
type Extension int

const (
	MS Extension = iota
	H5
	FITS
	Log
	Parset
	LSM
	IM
	PD
	VDS
	GDS
	Conf
)

var extensionNames = [...]string{"MS", "h5", "fits", "log", "parset", "lsm", "IM", "PD", "vds", "gds", "conf"}

func (e Extension) String() string {
	if e < 0 || int(e) >= len(extensionNames) {
		return Undefined
	}
	return extensionNames[e]
}

// ParseExtension maps an extension back to its value.
func ParseExtension(s string) (Extension, bool) {
	for i, name := range extensionNames {
		if name == s {
			return Extension(i), true
		}
	}
	return -1, false
}

// Filename builds names of LOFAR data files.
type Filename struct {
	ObservationID string
	Description   string // optional
	Type          FileType
	Extension     Extension
	Path          string // directory, optional
}

// NewFilename returns the name of a uv h5 file for the observation.
func NewFilename(obsID string) Filename {
	return Filename{ObservationID: obsID, Type: UV, Extension: H5}
}

// Name renders L<obsid>[_<descr>]_<type>.<ext>. With fullPath a non-empty
// Path is prepended.
func (f Filename) Name(fullPath bool) string {
	var b strings.Builder
	if fullPath && f.Path != "" {
		b.WriteString(f.Path)
		b.WriteString("/")
	}
	b.WriteString("L")
	b.WriteString(f.ObservationID)
	if f.Description != "" {
		b.WriteString("_")
		b.WriteString(f.Description)
	}
	b.WriteString("_")
	b.WriteString(f.Type.String())
	b.WriteString(".")
	b.WriteString(f.Extension.String())
	return b.String()
}

func (f Filename) String() string { return f.Name(true) }

// ParseFilename splits a file name built by Name. The observation ID runs
// up to the first underscore and the type follows the last one; anything
// in between is the description.
func ParseFilename(name string) (Filename, error) {
	var f Filename
	dir, base := path.Split(name)
	f.Path = strings.TrimSuffix(dir, "/")

	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return f, ErrInvalidFilename.New(name, "no extension")
	}
	stem, ext := base[:dot], base[dot+1:]
	var ok bool
	if f.Extension, ok = ParseExtension(ext); !ok {
		return f, ErrInvalidFilename.New(name, "unknown extension "+ext)
	}
	if !strings.HasPrefix(stem, "L") {
		return f, ErrInvalidFilename.New(name, "missing L prefix")
	}
	stem = stem[1:]
	first, last := strings.Index(stem, "_"), strings.LastIndex(stem, "_")
	if first <= 0 {
		return f, ErrInvalidFilename.New(name, "missing observation ID or file type")
	}
	f.ObservationID = stem[:first]
	if first < last {
		f.Description = stem[first+1 : last]
	}
	typ := stem[last+1:]
	if f.Type, ok = ParseFileType(typ); !ok {
		return f, ErrInvalidFilename.New(name, "unknown file type "+typ)
	}
	return f, nil
}

// Summary writes the parts of the name to w.
func (f Filename) Summary(w io.Writer) {
	fmt.Fprintln(w, "[Filename] Summary of internal parameters.")
	fmt.Fprintf(w, "-- Observation ID       = %s\n", f.ObservationID)
	fmt.Fprintf(w, "-- Optional description = %s\n", f.Description)
	fmt.Fprintf(w, "-- File type            = %s\n", f.Type)
	fmt.Fprintf(w, "-- File extension       = %s\n", f.Extension)
	fmt.Fprintf(w, "-- Filename             = %s\n", f.Name(false))
	fmt.Fprintf(w, "-- File path            = %s\n", f.Path)
}
