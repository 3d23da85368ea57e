package protocol_test

import (
	"context"
	"testing"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/protocol"
	"github.com/stretchr/testify/require"
)

// leafProtocol is a minimal Protocol for tests: no children, no delete, a
// fixed Data payload.
type leafProtocol struct {
	data []byte
}

func (leafProtocol) Validation() capkey.Validation { return capkey.Validation{} }

func (leafProtocol) Id() (ids.Id, error) {
	return capkey.Validation{}.Id()
}

func (p leafProtocol) HeaderInfo(ctx context.Context, cache protocol.CacheReader, parent capkey.Header, recordKey capkey.Key, index uint32) (protocol.HeaderInfo, error) {
	return protocol.HeaderInfo{Data: p.data}, nil
}

func TestNewRegistryPreRegistersPointer(t *testing.T) {
	r, err := protocol.NewRegistry()
	require.NoError(t, err)
	p, ok := r.Lookup(ids.Max)
	require.True(t, ok)
	_, isPointer := p.(protocol.Pointer)
	require.True(t, isPointer)
}

func TestRegisterRejectsDuplicateId(t *testing.T) {
	r, err := protocol.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, r.Register(leafProtocol{}))

	err = r.Register(leafProtocol{})
	require.Error(t, err)
	var dup *protocol.DuplicateError
	require.ErrorAs(t, err, &dup)
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	r, err := protocol.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, r.Register(leafProtocol{data: []byte("a")}))

	all := r.All()
	require.Len(t, all, 2)
	pointerID, err := protocol.Pointer{}.Id()
	require.NoError(t, err)
	firstID, err := all[0].Id()
	require.NoError(t, err)
	require.Equal(t, pointerID, firstID)
}

func TestPointerIdIsSentinelMax(t *testing.T) {
	id, err := protocol.NewPointer([]byte("target")).Id()
	require.NoError(t, err)
	require.Equal(t, ids.Max, id)
}

func TestPointerHeaderInfoCarriesTargetAsData(t *testing.T) {
	p := protocol.NewPointer([]byte("serialized-header"))
	info, err := p.HeaderInfo(context.Background(), nil, capkey.Header{}, capkey.Key{}, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("serialized-header"), info.Data)
	require.Empty(t, info.Others)
	require.Nil(t, info.Delete)
}
