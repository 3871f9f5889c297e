package dal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

func TestOpenGroupWritesDefaults(t *testing.T) {
	f := newTestFile(t)
	g, err := OpenGroup(f, "StationBeam000", schema.StatBeam, true)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, "/StationBeam000", g.Path())
	assert.Equal(t, "StationBeam000", g.Name())
	assert.Equal(t, schema.StatBeam, g.Kind())

	gt, err := GetAttribute[string](g, "GROUPTYPE")
	require.NoError(t, err)
	assert.Equal(t, "StatBeam", gt)

	tracking, err := GetAttribute[string](g, "TRACKING")
	require.NoError(t, err)
	assert.Equal(t, "OFF", tracking)

	n, err := GetAttribute[int32](g, "NOF_STATIONS")
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := GetAttributeVector[string](g, "STATIONS_LIST")
	require.NoError(t, err)
	assert.Equal(t, []string{"UNDEFINED"}, list)

	unit, err := GetAttribute[string](g, "SAMPLING_TIME_UNIT")
	require.NoError(t, err)
	assert.Equal(t, "us", unit)

	s, err := schema.Lookup(schema.StatBeam)
	require.NoError(t, err)
	names, err := AttributeNames(g)
	require.NoError(t, err)
	assert.ElementsMatch(t, s.Names(), names)
}

func TestOpenGroupWithoutCreate(t *testing.T) {
	captureLog(t)
	f := newTestFile(t)

	_, err := OpenGroup(f, "Missing", schema.SysLog, false)
	assert.True(t, ErrNotFound.Is(err), "got %v", err)
	assert.False(t, f.Root().Has("Missing"))

	members, err := f.Root().MemberList(AllObjects)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestOpenGroupKeepsExistingValues(t *testing.T) {
	f := newTestFile(t)
	g, err := OpenGroup(f, "Beam", schema.StatBeam, true)
	require.NoError(t, err)
	require.NoError(t, SetAttribute(g, "TRACKING", "J2000"))
	require.NoError(t, g.Close())

	g, err = OpenGroup(f, "Beam", schema.StatBeam, true)
	require.NoError(t, err)
	tracking, err := GetAttribute[string](g, "TRACKING")
	require.NoError(t, err)
	assert.Equal(t, "J2000", tracking)
}

func TestEmbeddedHook(t *testing.T) {
	var calls []bool
	RegisterEmbedded(schema.SysLog, func(g *Group, create bool) error {
		calls = append(calls, create)
		child, err := OpenGroup(g, "Entries", "", create)
		if err != nil {
			return err
		}
		return child.Close()
	})
	t.Cleanup(func() { RegisterEmbedded(schema.SysLog, nil) })

	f := newTestFile(t)
	g, err := OpenGroup(f, "SysLog", schema.SysLog, true)
	require.NoError(t, err)
	assert.True(t, g.Has("Entries"))
	require.NoError(t, g.Close())

	_, err = OpenGroup(f, "SysLog", schema.SysLog, false)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, calls)
}

func TestEmbeddedHookOnRoot(t *testing.T) {
	RegisterEmbedded(schema.Station, func(g *Group, create bool) error {
		_, err := OpenGroup(g, "Antennas", "", create)
		return err
	})
	t.Cleanup(func() { RegisterEmbedded(schema.Station, nil) })

	f := newTestFile(t, WithRootKind(schema.Station))
	assert.True(t, f.Root().Has("Antennas"))
}

func TestMemberEnumeration(t *testing.T) {
	f := newTestFile(t)
	root := f.Root()
	for _, name := range []string{"b", "a"} {
		_, err := OpenGroup(f, name, "", true)
		require.NoError(t, err)
	}
	_, err := CreateArray(f, "c", []uint64{4}, Int32, nil)
	require.NoError(t, err)

	tests := []struct {
		filter     ObjectType
		sorted     []string
		byCreation []string
	}{
		{AllObjects, []string{"a", "b", "c"}, []string{"b", "a", "c"}},
		{Groups, []string{"a", "b"}, []string{"b", "a"}},
		{Datasets, []string{"c"}, []string{"c"}},
	}
	for _, tt := range tests {
		sorted, err := root.MemberList(tt.filter)
		require.NoError(t, err)
		assert.Equal(t, tt.sorted, sorted)

		byCreation, err := root.MemberListByCreation(tt.filter)
		require.NoError(t, err)
		assert.Equal(t, tt.byCreation, byCreation)

		set, err := root.MemberNames(tt.filter)
		require.NoError(t, err)
		assert.Len(t, set, len(tt.sorted))
		for _, name := range tt.sorted {
			assert.Contains(t, set, name)
		}
	}
}

func TestGroupStateMachine(t *testing.T) {
	captureLog(t)
	f := newTestFile(t)
	g, err := OpenGroup(f, "G", "", true)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, g.State())

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.Equal(t, StateClosed, g.State())
	assert.False(t, g.Has("anything"))
	assert.Nil(t, g.Engine())

	_, err = g.MemberList(AllObjects)
	assert.True(t, ErrInvalidHandle.Is(err), "got %v", err)
	err = SetAttribute(g, "X", int32(1))
	assert.True(t, ErrInvalidHandle.Is(err), "got %v", err)
	_, err = OpenGroup(g, "child", "", true)
	assert.True(t, ErrInvalidHandle.Is(err), "got %v", err)

	var unopened Group
	_, err = GetAttribute[int32](&unopened, "X")
	assert.True(t, ErrInvalidHandle.Is(err), "got %v", err)
}

func TestOpenGroupErrors(t *testing.T) {
	captureLog(t)
	f := newTestFile(t)
	a, err := CreateArray(f, "data", []uint64{2}, Int16, nil)
	require.NoError(t, err)

	_, err = OpenGroup(a, "child", "", true)
	assert.True(t, ErrMismatch.Is(err), "array parent: %v", err)

	_, err = OpenGroup(f, "data", "", false)
	assert.True(t, ErrMismatch.Is(err), "dataset link: %v", err)

	_, err = OpenGroup(f, "Unknown", schema.Kind("NoSuchKind"), true)
	assert.True(t, ErrNotFound.Is(err), "unknown kind: %v", err)
}
