package recpath_test

import (
	"testing"

	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/stretchr/testify/require"
)

func randomID(t *testing.T) ids.Id {
	t.Helper()
	id, err := ids.Random()
	require.NoError(t, err)
	return id
}

func TestRootPathStringIsSlash(t *testing.T) {
	require.Equal(t, "/", recpath.RecordPath{}.String())
}

func TestJoinAndParentAreInverse(t *testing.T) {
	root := recpath.RecordPath{}
	seg := randomID(t)
	child := root.Join(seg)
	require.True(t, child.HasPrefix(root))
	require.True(t, child.Parent().Equal(root))
}

func TestParentOnRootIsRoot(t *testing.T) {
	root := recpath.RecordPath{}
	require.True(t, root.Parent().Equal(root))
}

func TestHasPrefixRejectsDivergentPath(t *testing.T) {
	a := recpath.RecordPath{randomID(t)}
	b := recpath.RecordPath{randomID(t)}
	require.False(t, b.HasPrefix(a))
}

func TestCloneIsIndependent(t *testing.T) {
	p := recpath.RecordPath{randomID(t)}
	c := p.Clone()
	c[0] = randomID(t)
	require.False(t, p.Equal(c))
}

func TestEqualRequiresSameLength(t *testing.T) {
	a := recpath.RecordPath{randomID(t)}
	b := a.Join(randomID(t))
	require.False(t, a.Equal(b))
}
