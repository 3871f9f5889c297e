package dal

import (
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// newTestFile creates an empty file that is closed when the test ends.
func newTestFile(t *testing.T, opts ...FileOption) *File {
	t.Helper()
	f, err := Create(filepath.Join(t.TempDir(), "test.h5"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// captureLog routes the package logger into a hook for the rest of the
// test.
func captureLog(t *testing.T) *logtest.Hook {
	t.Helper()
	l, hook := logtest.NewNullLogger()
	prev := Logger()
	SetLogger(l)
	t.Cleanup(func() { SetLogger(prev) })
	return hook
}
