package hdf5

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestNestedGroups(t *testing.T) {
	f, path := newFile(t)
	a, err := f.Root().CreateGroup("a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := a.CreateGroup("b")
	if err != nil {
		t.Fatal(err)
	}
	if b.Path() != "/a/b" || b.Name() != "b" {
		t.Errorf("path = %q name = %q", b.Path(), b.Name())
	}
	if _, err := b.CreateDataset("data", []uint64{2}, Int16); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r := reopen(t, path)
	tests := []struct {
		path string
		want ObjectType
	}{
		{"a", ObjectGroup},
		{"/a/b", ObjectGroup},
		{"a/b/data", ObjectDataset},
		{"//a//b/", ObjectGroup},
	}
	for _, tt := range tests {
		typ, err := r.Root().ObjectType(tt.path)
		if err != nil {
			t.Errorf("ObjectType(%q): %v", tt.path, err)
			continue
		}
		if typ != tt.want {
			t.Errorf("ObjectType(%q) = %s, want %s", tt.path, typ, tt.want)
		}
	}

	g, err := r.OpenGroup("/a")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := g.OpenGroup("b")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Path() != "/a/b" {
		t.Errorf("relative open path = %q", sub.Path())
	}
	ds, err := sub.OpenDataset("/a/b/data")
	if err != nil {
		t.Fatal(err)
	}
	if ds.Path() != "/a/b/data" {
		t.Errorf("absolute open path = %q", ds.Path())
	}
}

func TestGroupErrors(t *testing.T) {
	f, _ := newFile(t)
	root := f.Root()
	if _, err := root.CreateGroup("g"); err != nil {
		t.Fatal(err)
	}
	if _, err := root.CreateDataset("d", []uint64{1}, Uint8); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"duplicate group", func() error { _, err := root.CreateGroup("g"); return err }, ErrExists},
		{"duplicate dataset", func() error { _, err := root.CreateDataset("g", []uint64{1}, Uint8); return err }, ErrExists},
		{"slash in name", func() error { _, err := root.CreateGroup("x/y"); return err }, ErrInvalidPath},
		{"empty name", func() error { _, err := root.CreateGroup(""); return err }, ErrInvalidPath},
		{"missing", func() error { _, err := root.OpenGroup("nope"); return err }, ErrNotFound},
		{"missing parent", func() error { _, err := root.OpenGroup("nope/g"); return err }, ErrNotFound},
		{"dataset as group", func() error { _, err := root.OpenGroup("d"); return err }, ErrNotGroup},
		{"group as dataset", func() error { _, err := root.OpenDataset("g"); return err }, ErrNotDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMemberOrder(t *testing.T) {
	f, path := newFile(t)
	created := []string{"zeta", "alpha", "SUB_ARRAY_POINTING_002", "mid", "SUB_ARRAY_POINTING_000"}
	for _, name := range created {
		if _, err := f.Root().CreateGroup(name); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()

	r := reopen(t, path)
	byName, err := r.Root().Members()
	if err != nil {
		t.Fatal(err)
	}
	want := slices.Clone(created)
	slices.Sort(want)
	if !slices.Equal(byName, want) {
		t.Errorf("Members() = %v, want %v", byName, want)
	}
	byCreation, err := r.Root().MembersByCreation()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(byCreation, created) {
		t.Errorf("MembersByCreation() = %v, want %v", byCreation, created)
	}
}

func TestManyMembers(t *testing.T) {
	// Enough links to overflow the root header into continuation chunks.
	f, path := newFile(t)
	const n = 120
	for i := 0; i < n; i++ {
		g, err := f.Root().CreateGroup(fmt.Sprintf("STATION_%03d", i))
		if err != nil {
			t.Fatalf("group %d: %v", i, err)
		}
		if err := g.SetAttr("INDEX", i); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()

	r := reopen(t, path)
	names, err := r.Root().MembersByCreation()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != n {
		t.Fatalf("%d members, want %d", len(names), n)
	}
	for i, name := range names {
		if want := fmt.Sprintf("STATION_%03d", i); name != want {
			t.Fatalf("member %d = %s, want %s", i, name, want)
		}
	}
	a, err := r.Attr("/STATION_077@INDEX")
	if err != nil {
		t.Fatal(err)
	}
	got := make([]int64, 1)
	if err := a.Read(got); err != nil {
		t.Fatal(err)
	}
	if got[0] != 77 {
		t.Errorf("INDEX = %d, want 77", got[0])
	}
}
