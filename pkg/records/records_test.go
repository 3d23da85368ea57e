package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/pkg/cache"
	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/config"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/protocol"
	"github.com/ramp-stack/air-go/pkg/recpath"
	"github.com/ramp-stack/air-go/pkg/records"
	"github.com/ramp-stack/air-go/pkg/resolver"
	"github.com/ramp-stack/air-go/pkg/storagesvc"
	"github.com/ramp-stack/air-go/pkg/transport/mocknet"
	"github.com/stretchr/testify/require"
)

// leafProtocol is a terminal record type: it declares a delete key (a
// holder may carry it public-only) and no children, derived
// deterministically from the record's own key so two Clients sharing the
// same root reproduce identical headers.
type leafProtocol struct{}

func (leafProtocol) Validation() capkey.Validation {
	return capkey.NewValidation().RequireDelete(false).Build()
}

func (leafProtocol) Id() (ids.Id, error) {
	return leafProtocol{}.Validation().Id()
}

func (leafProtocol) HeaderInfo(ctx context.Context, c protocol.CacheReader, parent capkey.Header, recordKey capkey.Key, index uint32) (protocol.HeaderInfo, error) {
	deleteKey, err := recordKey.Derive(99)
	if err != nil {
		return protocol.HeaderInfo{}, err
	}
	return protocol.HeaderInfo{Data: []byte("leaf"), Delete: &deleteKey}, nil
}

type harness struct {
	net *mocknet.Net
	dir *resolver.StaticDirectory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := resolver.NewStaticDirectory()
	svc := storagesvc.New(dir, config.New(), nil)
	net := mocknet.New()
	net.Register(config.DefaultStorageServiceName, svc.AsHandler())
	return &harness{net: net, dir: dir}
}

// newClient builds a fresh Client with its own record-tree root and
// identity secret, wired to h's shared server and resolver.
func newClient(t *testing.T, h *harness, rootSecret *btcec.PrivateKey) *records.Client {
	t.Helper()
	root := recpath.NewRoot(rootSecret)
	c, err := cache.New(root)
	require.NoError(t, err)
	reg, err := protocol.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Register(leafProtocol{}))
	identitySecret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	transport := h.net.Dial(config.DefaultStorageServiceName)
	return records.New(c, transport, h.dir, reg, identitySecret, config.New(), nil)
}

// newRootSecret generates a fresh record-tree root secret. Passing the
// same secret to two newClient calls simulates the same identity
// reconnecting with a fresh in-memory Cache.
func newRootSecret(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	sk, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	return sk
}

func TestCreateReadRoundTrip(t *testing.T) {
	h := newHarness(t)
	alice := newClient(t, h, newRootSecret(t))
	ctx := context.Background()

	path, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 0, capkey.Full(leafProtocol{}.Validation()), []byte("hello"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	rec, _, err := alice.Read(ctx, path)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), rec.Payload)
}

func TestCreateConflictReturnsExistingRecord(t *testing.T) {
	h := newHarness(t)
	alice := newClient(t, h, newRootSecret(t))
	ctx := context.Background()

	_, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 3, capkey.Full(leafProtocol{}.Validation()), []byte("first"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	_, conflict2, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 3, capkey.Full(leafProtocol{}.Validation()), []byte("second"))
	require.NoError(t, err)
	require.NotNil(t, conflict2)
	require.NoError(t, conflict2.Err)
	require.NotNil(t, conflict2.Record)
	require.Equal(t, []byte("first"), conflict2.Record.Payload)
}

func TestUpdateThenReadSeesNewPayload(t *testing.T) {
	h := newHarness(t)
	alice := newClient(t, h, newRootSecret(t))
	ctx := context.Background()

	path, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 1, capkey.Full(leafProtocol{}.Validation()), []byte("v1"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	applied, err := alice.Update(ctx, path, capkey.Full(leafProtocol{}.Validation()), []byte("v2"))
	require.NoError(t, err)
	require.True(t, applied)

	rec, _, err := alice.Read(ctx, path)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), rec.Payload)
}

func TestDeleteForgetsRowBothSidesAndReadFails(t *testing.T) {
	h := newHarness(t)
	alice := newClient(t, h, newRootSecret(t))
	ctx := context.Background()

	path, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 2, capkey.Full(leafProtocol{}.Validation()), []byte("v1"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	applied, err := alice.Delete(ctx, path)
	require.NoError(t, err)
	require.True(t, applied)

	_, _, err = alice.Read(ctx, path)
	require.Error(t, err)
}

func TestPublicOnlyDeleteShareCannotLocallyDelete(t *testing.T) {
	h := newHarness(t)
	alice := newClient(t, h, newRootSecret(t))
	bob := newClient(t, h, newRootSecret(t))
	ctx := context.Background()

	path, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 4, capkey.Full(leafProtocol{}.Validation()), []byte("shared-secret"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	publicDelete := false
	require.NoError(t, alice.Share(ctx, path, capkey.Permissions{Delete: &publicDelete}, bob.Name()))

	received, _, err := bob.Receive(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, received, 1)
	bobPath := received[0].Path

	rec, _, err := bob.Read(ctx, bobPath)
	require.NoError(t, err)
	require.Equal(t, []byte("shared-secret"), rec.Payload)

	_, err = bob.Delete(ctx, bobPath)
	require.Error(t, err)
}

func TestShareAndReceiveCarriesFullReadAccess(t *testing.T) {
	h := newHarness(t)
	alice := newClient(t, h, newRootSecret(t))
	bob := newClient(t, h, newRootSecret(t))
	ctx := context.Background()

	path, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 5, capkey.Full(leafProtocol{}.Validation()), []byte("payload"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	require.NoError(t, alice.Share(ctx, path, capkey.Full(leafProtocol{}.Validation()), bob.Name()))

	received, cursor, err := bob.Receive(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, received, 1)
	sharedHeader, ok := bob.Cache.Get(received[0].Path)
	require.True(t, ok)
	require.True(t, sharedHeader.Keys.Delete.IsSecret())

	receivedAgain, _, err := bob.Receive(ctx, cursor)
	require.NoError(t, err)
	require.Empty(t, receivedAgain)
}

func TestDiscoverReconstructsHeaderForSameRootSecretAcrossSessions(t *testing.T) {
	h := newHarness(t)
	rootSecret := newRootSecret(t)
	alice := newClient(t, h, rootSecret)
	ctx := context.Background()

	path, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 6, capkey.Full(leafProtocol{}.Validation()), []byte("persisted"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	reconnected := newClient(t, h, rootSecret)
	discoveredPath, _, found, err := reconnected.Discover(ctx, recpath.RecordPath{}, 6)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, discoveredPath.Equal(path))

	rec, _, err := reconnected.Read(ctx, discoveredPath)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), rec.Payload)
}

func TestDiscoverMissingIndexReportsNotFound(t *testing.T) {
	h := newHarness(t)
	alice := newClient(t, h, newRootSecret(t))
	ctx := context.Background()

	_, _, found, err := alice.Discover(ctx, recpath.RecordPath{}, 42)
	require.NoError(t, err)
	require.False(t, found)
}

func TestCreatePointerResolvesToTargetOnDiscover(t *testing.T) {
	h := newHarness(t)
	rootSecret := newRootSecret(t)
	alice := newClient(t, h, rootSecret)
	ctx := context.Background()

	targetPath, conflict, err := alice.Create(ctx, recpath.RecordPath{}, leafProtocol{}, 10, capkey.Full(leafProtocol{}.Validation()), []byte("target"))
	require.NoError(t, err)
	require.Nil(t, conflict)

	_, conflict2, err := alice.CreatePointer(ctx, recpath.RecordPath{}, targetPath, 11)
	require.NoError(t, err)
	require.Nil(t, conflict2)

	reconnected := newClient(t, h, rootSecret)
	discoveredPath, _, found, err := reconnected.Discover(ctx, recpath.RecordPath{}, 11)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, discoveredPath.Equal(targetPath))
}
