package hdf5

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

func TestAttributeValues(t *testing.T) {
	f, path := newFile(t)
	root := f.Root()
	values := map[string]any{
		"INT":     int32(-7),
		"WIDE":    42,
		"DOUBLE":  1.5e9,
		"FLOAT":   float32(0.25),
		"TEXT":    "LOFAR",
		"EMPTY":   "",
		"NAMES":   []string{"CS001", "CS002", "RS106"},
		"FREQS":   []float64{30e6, 50e6, 70e6},
		"FLAG":    true,
		"NO_VALS": []float64{},
	}
	for name, v := range values {
		if err := root.SetAttr(name, v); err != nil {
			t.Fatalf("SetAttr(%s): %v", name, err)
		}
	}
	f.Close()

	r := reopen(t, path)
	tests := []struct {
		name string
		want any
	}{
		{"INT", []int32{-7}},
		{"WIDE", []int64{42}},
		{"DOUBLE", []float64{1.5e9}},
		{"FLOAT", []float32{0.25}},
		{"TEXT", []string{"LOFAR"}},
		{"EMPTY", []string{""}},
		{"NAMES", []string{"CS001", "CS002", "RS106"}},
		{"FREQS", []float64{30e6, 50e6, 70e6}},
		{"FLAG", []int32{1}},
		{"NO_VALS", []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := r.Root().Attr(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			got, err := a.Value()
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Value() = %#v, want %#v", got, tt.want)
			}
			if a.IsScalar() {
				t.Error("attributes are stored as one-dimensional arrays")
			}
		})
	}

	a, err := r.Root().Attr("FLAG")
	if err != nil {
		t.Fatal(err)
	}
	flag := make([]bool, 1)
	if err := a.Read(flag); err != nil || !flag[0] {
		t.Errorf("FLAG as bool = %v, %v", flag, err)
	}
	asFloat := make([]float64, 1)
	a, _ = r.Root().Attr("INT")
	if err := a.Read(asFloat); err != nil || asFloat[0] != -7 {
		t.Errorf("INT as float64 = %v, %v", asFloat, err)
	}
}

func TestAttributeReadErrors(t *testing.T) {
	f, _ := newFile(t)
	root := f.Root()
	if err := root.SetAttr("NAMES", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	a, err := root.Attr("NAMES")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Read(make([]string, 3)); !errors.Is(err, ErrShape) {
		t.Errorf("short buffer: %v, want ErrShape", err)
	}
	if err := a.Read(make([]int32, 2)); !errors.Is(err, ErrType) {
		t.Errorf("strings into int32: %v, want ErrType", err)
	}
	if err := root.SetAttr("BAD", struct{}{}); !errors.Is(err, ErrType) {
		t.Errorf("struct value: %v, want ErrType", err)
	}
	if _, err := root.Attr("MISSING"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing attribute: %v, want ErrNotFound", err)
	}
}

func TestAttributeOverwriteAndDelete(t *testing.T) {
	f, path := newFile(t)
	g, err := f.Root().CreateGroup("STATION_CS001")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"A", "B", "C"} {
		if err := g.SetAttr(name, 1); err != nil {
			t.Fatal(err)
		}
	}
	// Replacing with a different type and shape keeps the name order.
	if err := g.SetAttr("B", []string{"x", "y", "z"}); err != nil {
		t.Fatal(err)
	}
	if err := g.DeleteAttr("A"); err != nil {
		t.Fatal(err)
	}
	if err := g.DeleteAttr("A"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v, want ErrNotFound", err)
	}
	f.Close()

	r := reopen(t, path)
	rg, err := r.OpenGroup("STATION_CS001")
	if err != nil {
		t.Fatal(err)
	}
	names, err := rg.AttrNames()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"B", "C"}) {
		t.Errorf("AttrNames() = %v, want [B C]", names)
	}
	b, err := rg.Attr("B")
	if err != nil {
		t.Fatal(err)
	}
	if !b.IsString() || b.Len() != 3 || !slices.Equal(b.Shape(), []uint64{3}) {
		t.Errorf("B: string=%v len=%d shape=%v", b.IsString(), b.Len(), b.Shape())
	}
}

func TestAttributeOutlivesFile(t *testing.T) {
	f, _ := newFile(t)
	if err := f.Root().SetAttr("OBSERVER", "someone"); err != nil {
		t.Fatal(err)
	}
	a, err := f.Root().Attr("OBSERVER")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	v, err := a.Value()
	if err != nil {
		t.Fatal(err)
	}
	if s := v.([]string); s[0] != "someone" {
		t.Errorf("value after close = %q", s[0])
	}
}

func TestDatasetAttributes(t *testing.T) {
	f, path := newFile(t)
	ds, err := f.Root().CreateDataset("BEAM_000", []uint64{4, 2}, Float32)
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.SetAttr("NOF_SAMPLES", uint64(4)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r := reopen(t, path)
	a, err := r.Attr("/BEAM_000@NOF_SAMPLES")
	if err != nil {
		t.Fatal(err)
	}
	v, err := a.Value()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []uint64{4}) {
		t.Errorf("NOF_SAMPLES = %v", v)
	}
}
