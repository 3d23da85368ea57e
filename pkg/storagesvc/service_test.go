package storagesvc_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/internal/telemetry"
	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/config"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/resolver"
	"github.com/ramp-stack/air-go/pkg/rpcwire"
	"github.com/ramp-stack/air-go/pkg/storagereq"
	"github.com/ramp-stack/air-go/pkg/storagesvc"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*storagesvc.Service, *resolver.StaticDirectory) {
	t.Helper()
	dir := resolver.NewStaticDirectory()
	return storagesvc.New(dir, config.New(), telemetry.New(nil)), dir
}

func signedPrivateItem(t *testing.T, discoverSecret *btcec.PrivateKey, deleteSecret *btcec.PrivateKey, payload []byte) cryptoutil.KeySigned[storagereq.PrivateItem] {
	t.Helper()
	item := storagereq.PrivateItem{Discover: capkey.Public(discoverSecret.PubKey()), Payload: payload}
	if deleteSecret != nil {
		deleteKey := capkey.Public(deleteSecret.PubKey())
		item.Delete = &deleteKey
	}
	signed, err := cryptoutil.SignKeySigned(discoverSecret, item)
	require.NoError(t, err)
	return signed
}

func TestCreatePrivateThenReadPrivateRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	discover, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)

	signed := signedPrivateItem(t, discover, nil, []byte("payload"))
	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreatePrivate, CreatePrivate: &signed})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespEmpty, resp.Kind)

	query := storagereq.DiscoverQuery{Discover: capkey.Public(discover.PubKey())}
	signedQuery, err := cryptoutil.SignKeySigned(discover, query)
	require.NoError(t, err)
	readResp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindReadPrivate, ReadPrivate: &signedQuery})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespReadPrivate, readResp.Kind)
	require.NotNil(t, readResp.ReadPrivateItem)
	require.Equal(t, []byte("payload"), readResp.ReadPrivateItem.Inner.Payload)
}

func TestCreatePrivateConflictReturnsExisting(t *testing.T) {
	svc, _ := newService(t)
	discover, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)

	first := signedPrivateItem(t, discover, nil, []byte("first"))
	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreatePrivate, CreatePrivate: &first})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespEmpty, resp.Kind)

	second := signedPrivateItem(t, discover, nil, []byte("second"))
	resp2, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreatePrivate, CreatePrivate: &second})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespPrivateConflict, resp2.Kind)
	require.Equal(t, []byte("first"), resp2.ConflictItem.Inner.Payload)
}

func TestUpdatePrivateRejectsWrongDeleteKey(t *testing.T) {
	svc, _ := newService(t)
	discover, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	correctDelete, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	wrongDelete, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)

	create := signedPrivateItem(t, discover, correctDelete, []byte("v1"))
	_, err = svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreatePrivate, CreatePrivate: &create})
	require.NoError(t, err)

	updateItem := storagereq.PrivateItem{
		Discover: capkey.Public(discover.PubKey()),
		Delete:   func() *capkey.Key { k := capkey.Public(correctDelete.PubKey()); return &k }(),
		Payload:  []byte("v2"),
	}
	inner, err := cryptoutil.SignKeySigned(discover, updateItem)
	require.NoError(t, err)
	outer, err := cryptoutil.SignKeySigned(wrongDelete, inner)
	require.NoError(t, err)

	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindUpdatePrivate, UpdatePrivate: &outer})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespInvalidDelete, resp.Kind)
}

func TestDeletePrivateRemovesRowWithCorrectKey(t *testing.T) {
	svc, _ := newService(t)
	discover, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	deleteKey, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)

	create := signedPrivateItem(t, discover, deleteKey, []byte("v1"))
	_, err = svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreatePrivate, CreatePrivate: &create})
	require.NoError(t, err)

	query := storagereq.DiscoverQuery{Discover: capkey.Public(discover.PubKey())}
	inner, err := cryptoutil.SignKeySigned(discover, query)
	require.NoError(t, err)
	outer, err := cryptoutil.SignKeySigned(deleteKey, inner)
	require.NoError(t, err)

	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindDeletePrivate, DeletePrivate: &outer})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespEmpty, resp.Kind)

	readResp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindReadPrivate, ReadPrivate: &inner})
	require.NoError(t, err)
	require.Nil(t, readResp.ReadPrivateItem)
}

func TestCreatePublicThenReadPublicFiltersByAuthor(t *testing.T) {
	svc, _ := newService(t)
	author, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	other, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	authorName := orange.FromSecret(author)
	otherName := orange.FromSecret(other)

	item := storagereq.PublicItem{Header: []byte("header"), Payload: []byte("payload")}
	signed, err := storagereq.SignDidSigned(context.Background(), resolver.NewStaticDirectory(), author, authorName, item)
	require.NoError(t, err)

	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreatePublic, CreatePublic: &signed})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespCreatedPublic, resp.Kind)
	require.NotNil(t, resp.CreatedPublicId)

	filterMine := storagereq.Filter{Author: &authorName}
	read, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindReadPublic, ReadPublic: &filterMine})
	require.NoError(t, err)
	require.Len(t, read.PublicRows, 1)

	filterOther := storagereq.Filter{Author: &otherName}
	readOther, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindReadPublic, ReadPublic: &filterOther})
	require.NoError(t, err)
	require.Empty(t, readOther.PublicRows)
}

func TestCreateDMThenReadDMByRecipient(t *testing.T) {
	svc, _ := newService(t)
	sender, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	recipientSecret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	recipient := orange.FromSecret(recipientSecret)

	_, err = svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreateDM, CreateDM: &storagereq.CreateDMBody{
		Recipient: recipient,
		Payload:   []byte("dm-payload"),
	}})
	require.NoError(t, err)
	_ = sender

	query := storagereq.ReadDMQuery{Time: time.Now().UTC(), Since: time.Now().UTC().Add(-time.Hour)}
	signed, err := storagereq.SignDidSigned(context.Background(), resolver.NewStaticDirectory(), recipientSecret, recipient, query)
	require.NoError(t, err)

	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindReadDM, ReadDM: &signed})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespReadDM, resp.Kind)
	require.Len(t, resp.DMBlobs, 1)
	require.Equal(t, []byte("dm-payload"), resp.DMBlobs[0])
}

func TestReadDMRejectsStaleTimestamp(t *testing.T) {
	svc, _ := newService(t)
	recipientSecret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	recipient := orange.FromSecret(recipientSecret)

	query := storagereq.ReadDMQuery{Time: time.Now().UTC().Add(-config.DefaultFreshnessWindow * 2), Since: time.Time{}}
	signed, err := storagereq.SignDidSigned(context.Background(), resolver.NewStaticDirectory(), recipientSecret, recipient, query)
	require.NoError(t, err)

	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindReadDM, ReadDM: &signed})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespInvalidSignature, resp.Kind)
}

func TestHandleUnknownKindReturnsInvalidRequest(t *testing.T) {
	svc, _ := newService(t)
	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.Kind("bogus")})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespInvalidRequest, resp.Kind)
}

func TestHandleMissingBodyReturnsInvalidRequest(t *testing.T) {
	svc, _ := newService(t)
	resp, err := svc.Handle(context.Background(), storagereq.Request{Kind: storagereq.KindCreatePrivate})
	require.NoError(t, err)
	require.Equal(t, storagereq.RespInvalidRequest, resp.Kind)
}

func TestHandleBatchSkipsInvalidSignatureWithoutFailingBatch(t *testing.T) {
	svc, _ := newService(t)
	discover, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	goodReq := signedPrivateItem(t, discover, nil, []byte("ok"))

	tampered := goodReq
	tampered.Inner.Payload = []byte("tampered-without-resigning")

	resps, err := svc.HandleBatch(context.Background(), []storagereq.Request{
		{Kind: storagereq.KindCreatePrivate, CreatePrivate: &tampered},
		{Kind: storagereq.KindCreatePrivate, CreatePrivate: &goodReq},
	})
	require.NoError(t, err)
	require.Len(t, resps, 2)
	require.Equal(t, storagereq.RespInvalidSignature, resps[0].Kind)
	require.Equal(t, storagereq.RespEmpty, resps[1].Kind)
}

func TestAsHandlerDispatchesServiceRequest(t *testing.T) {
	svc, _ := newService(t)
	h := svc.AsHandler()

	discover, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	signed := signedPrivateItem(t, discover, nil, []byte("payload"))
	req := storagereq.Request{Kind: storagereq.KindCreatePrivate, CreatePrivate: &signed}

	envelope, err := rpcwire.NewService(config.DefaultStorageServiceName, req)
	require.NoError(t, err)
	reqBytes, err := json.Marshal(envelope)
	require.NoError(t, err)

	respBytes, err := h(context.Background(), reqBytes)
	require.NoError(t, err)

	var resp rpcwire.Response
	require.NoError(t, json.Unmarshal(respBytes, &resp))
	decoded, err := resp.Service()
	require.NoError(t, err)
	require.Equal(t, storagereq.RespEmpty, decoded.Kind)
}
