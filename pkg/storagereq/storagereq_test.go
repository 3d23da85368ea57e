package storagereq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/resolver"
	"github.com/ramp-stack/air-go/pkg/storagereq"
	"github.com/stretchr/testify/require"
)

func TestFilterMatchesEmptyFilterAcceptsAnything(t *testing.T) {
	f := storagereq.Filter{}
	id, err := ids.Random()
	require.NoError(t, err)
	require.True(t, f.Matches(id, orange.Name{}, ids.Id{}, time.Now()))
}

func TestFilterMatchesById(t *testing.T) {
	id, err := ids.Random()
	require.NoError(t, err)
	other, err := ids.Random()
	require.NoError(t, err)

	f := storagereq.Filter{Id: &id}
	require.True(t, f.Matches(id, orange.Name{}, ids.Id{}, time.Now()))
	require.False(t, f.Matches(other, orange.Name{}, ids.Id{}, time.Now()))
}

func TestFilterMatchesByAuthor(t *testing.T) {
	secret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	other, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	author := orange.FromSecret(secret)
	otherAuthor := orange.FromSecret(other)

	f := storagereq.Filter{Author: &author}
	id, err := ids.Random()
	require.NoError(t, err)
	require.True(t, f.Matches(id, author, ids.Id{}, time.Now()))
	require.False(t, f.Matches(id, otherAuthor, ids.Id{}, time.Now()))
}

func TestFilterMatchesByDatetime(t *testing.T) {
	now := time.Now().UTC()
	id, err := ids.Random()
	require.NoError(t, err)

	cases := []struct {
		op      storagereq.DatetimeOp
		ts      time.Time
		matches bool
	}{
		{storagereq.OpLess, now.Add(-time.Minute), true},
		{storagereq.OpLess, now.Add(time.Minute), false},
		{storagereq.OpGreater, now.Add(time.Minute), true},
		{storagereq.OpGreater, now.Add(-time.Minute), false},
		{storagereq.OpEqual, now, true},
		{storagereq.OpLessOrEqual, now, true},
		{storagereq.OpGreaterOrEqual, now, true},
	}
	for _, c := range cases {
		f := storagereq.Filter{Datetime: &storagereq.DatetimeFilter{Op: c.op, Time: now}}
		require.Equal(t, c.matches, f.Matches(id, orange.Name{}, ids.Id{}, c.ts), "op=%s ts=%s", c.op, c.ts)
	}
}

func TestValidateCreatePrivateAcceptsEmpty(t *testing.T) {
	secret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	discover := capkey.Public(secret.PubKey())

	item, ts, err := storagereq.ValidateCreatePrivate(storagereq.Empty(), discover)
	require.NoError(t, err)
	require.Nil(t, item)
	require.Nil(t, ts)
}

func TestValidateCreatePrivateAcceptsMatchingConflict(t *testing.T) {
	secret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	discover := capkey.Public(secret.PubKey())

	privItem := storagereq.PrivateItem{Discover: discover, Payload: []byte("existing")}
	signed, err := cryptoutil.SignKeySigned(secret, privItem)
	require.NoError(t, err)
	ts := time.Now().UTC()

	resp := storagereq.Response{Kind: storagereq.RespPrivateConflict, ConflictItem: &signed, ConflictAt: &ts}
	item, gotTs, err := storagereq.ValidateCreatePrivate(resp, discover)
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, ts, *gotTs)
}

func TestValidateCreatePrivateRejectsMismatchedConflict(t *testing.T) {
	secret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	discover := capkey.Public(secret.PubKey())

	otherSecret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	otherDiscover := capkey.Public(otherSecret.PubKey())
	privItem := storagereq.PrivateItem{Discover: otherDiscover, Payload: []byte("existing")}
	signed, err := cryptoutil.SignKeySigned(otherSecret, privItem)
	require.NoError(t, err)
	ts := time.Now().UTC()

	resp := storagereq.Response{Kind: storagereq.RespPrivateConflict, ConflictItem: &signed, ConflictAt: &ts}
	_, _, err = storagereq.ValidateCreatePrivate(resp, discover)
	require.Error(t, err)
}

func TestValidateUpdateOrDeleteDetectsMaliciousServer(t *testing.T) {
	deleteSecret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	myDelete := capkey.Public(deleteSecret.PubKey())
	myDeleteID, err := myDelete.Id()
	require.NoError(t, err)

	resp := storagereq.Response{Kind: storagereq.RespInvalidDelete, InvalidDeletePub: &myDeleteID}
	_, err = storagereq.ValidateUpdateOrDelete(resp, myDelete)
	require.Error(t, err)
}

func TestValidateUpdateOrDeleteAcceptsGenuineMismatch(t *testing.T) {
	deleteSecret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	myDelete := capkey.Public(deleteSecret.PubKey())

	otherSecret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	otherID, err := capkey.Public(otherSecret.PubKey()).Id()
	require.NoError(t, err)

	resp := storagereq.Response{Kind: storagereq.RespInvalidDelete, InvalidDeletePub: &otherID}
	ok, err := storagereq.ValidateUpdateOrDelete(resp, myDelete)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateUpdateOrDeleteAcceptsEmpty(t *testing.T) {
	secret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	myDelete := capkey.Public(secret.PubKey())

	ok, err := storagereq.ValidateUpdateOrDelete(storagereq.Empty(), myDelete)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignAndVerifyDidSignedRoundTrip(t *testing.T) {
	dir := resolver.NewStaticDirectory()
	secret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	name := orange.FromSecret(secret)

	item := storagereq.PublicItem{Header: []byte("h"), Payload: []byte("p")}
	signed, err := storagereq.SignDidSigned(context.Background(), dir, secret, name, item)
	require.NoError(t, err)
	require.NoError(t, storagereq.VerifyDidSigned(context.Background(), dir, signed, nil))
}

func TestVerifyDidSignedRejectsTamperedPayload(t *testing.T) {
	dir := resolver.NewStaticDirectory()
	secret, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	name := orange.FromSecret(secret)

	item := storagereq.PublicItem{Header: []byte("h"), Payload: []byte("p")}
	signed, err := storagereq.SignDidSigned(context.Background(), dir, secret, name, item)
	require.NoError(t, err)

	signed.Inner.Payload = []byte("tampered")
	require.Error(t, storagereq.VerifyDidSigned(context.Background(), dir, signed, nil))
}
