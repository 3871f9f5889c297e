package hdf5

import (
	"errors"
	"slices"
	"testing"
)

func TestParseAttrPath(t *testing.T) {
	tests := []struct {
		in         string
		objectPath string
		attrName   string
		wantErr    bool
	}{
		{"/@FILENAME", "/", "FILENAME", false},
		{"@FILENAME", "/", "FILENAME", false},
		{"/SUB_ARRAY_POINTING_000@POINT_RA", "/SUB_ARRAY_POINTING_000", "POINT_RA", false},
		{"SAP/BEAM//@NOF_STOKES", "/SAP/BEAM", "NOF_STOKES", false},
		{"/a@b@c", "/a@b", "c", false},
		{"/no/separator", "", "", true},
		{"/empty@", "", "", true},
	}
	for _, tt := range tests {
		objectPath, attrName, err := ParseAttrPath(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAttrPath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("ParseAttrPath(%q) error = %v, want ErrInvalidPath", tt.in, err)
			}
			continue
		}
		if objectPath != tt.objectPath || attrName != tt.attrName {
			t.Errorf("ParseAttrPath(%q) = %q, %q, want %q, %q", tt.in, objectPath, attrName, tt.objectPath, tt.attrName)
		}
		o, a, err := ParseAttrPath(JoinAttrPath(objectPath, attrName))
		if err != nil || o != objectPath || a != attrName {
			t.Errorf("JoinAttrPath(%q, %q) does not parse back: %q, %q, %v", objectPath, attrName, o, a, err)
		}
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/", nil},
		{"", nil},
		{"/a/b", []string{"a", "b"}},
		{"a//b/", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := SplitPath(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("SplitPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := CleanPath("a//b/"); got != "/a/b" {
		t.Errorf("CleanPath = %q", got)
	}
}

func TestWalk(t *testing.T) {
	f, path := newFile(t)
	root := f.Root()
	sap, _ := root.CreateGroup("SAP_000")
	beam, _ := sap.CreateGroup("BEAM_000")
	beam.CreateDataset("STOKES_0", []uint64{4}, Float32)
	beam.CreateDataset("STOKES_1", []uint64{4}, Float32)
	root.CreateGroup("SYS_LOG")
	f.Close()

	r := reopen(t, path)
	var visited []string
	err := Walk(r.Root(), func(p string, obj any, err error) error {
		if err != nil {
			return err
		}
		switch obj.(type) {
		case *Group:
			visited = append(visited, p+"/")
		case *Dataset:
			visited = append(visited, p)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"//",
		"/SAP_000/",
		"/SAP_000/BEAM_000/",
		"/SAP_000/BEAM_000/STOKES_0",
		"/SAP_000/BEAM_000/STOKES_1",
		"/SYS_LOG/",
	}
	if !slices.Equal(visited, want) {
		t.Errorf("visited %q, want %q", visited, want)
	}

	visited = nil
	Walk(r.Root(), func(p string, obj any, err error) error {
		visited = append(visited, p)
		if p == "/SAP_000" {
			return ErrSkipGroup
		}
		return nil
	})
	if !slices.Equal(visited, []string{"/", "/SAP_000", "/SYS_LOG"}) {
		t.Errorf("with skip visited %q", visited)
	}

	stop := errors.New("stop")
	if err := Walk(r.Root(), func(string, any, error) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("Walk returned %v, want stop", err)
	}
}
