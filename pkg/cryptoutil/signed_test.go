package cryptoutil_test

import (
	"testing"

	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/stretchr/testify/require"
)

func TestKeySignedSignAndVerify(t *testing.T) {
	priv, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)

	target, err := ids.Random()
	require.NoError(t, err)
	inner := ids.Ref{Target: target}

	signed, err := cryptoutil.SignKeySigned(priv, inner)
	require.NoError(t, err)
	require.True(t, signed.Verify())
	require.True(t, signed.Signer().IsEqual(priv.PubKey()))
}

func TestKeySignedVerifyFailsOnTamperedInner(t *testing.T) {
	priv, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)

	target, err := ids.Random()
	require.NoError(t, err)
	signed, err := cryptoutil.SignKeySigned(priv, ids.Ref{Target: target})
	require.NoError(t, err)

	other, err := ids.Random()
	require.NoError(t, err)
	signed.Inner = ids.Ref{Target: other}
	require.False(t, signed.Verify())
}

func TestKeySignedJSONRoundTrip(t *testing.T) {
	priv, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	target, err := ids.Random()
	require.NoError(t, err)
	signed, err := cryptoutil.SignKeySigned(priv, ids.Ref{Target: target})
	require.NoError(t, err)

	raw, err := signed.MarshalJSON()
	require.NoError(t, err)

	var decoded cryptoutil.KeySigned[ids.Ref]
	require.NoError(t, decoded.UnmarshalJSON(raw))
	require.True(t, decoded.Verify())
	require.Equal(t, signed.Inner, decoded.Inner)
}

func TestKeySignedNestedOuterInner(t *testing.T) {
	innerKey, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)
	outerKey, err := cryptoutil.GenerateSecretKey()
	require.NoError(t, err)

	target, err := ids.Random()
	require.NoError(t, err)
	inner, err := cryptoutil.SignKeySigned(innerKey, ids.Ref{Target: target})
	require.NoError(t, err)

	outer, err := cryptoutil.SignKeySigned(outerKey, inner)
	require.NoError(t, err)
	require.True(t, outer.Verify())
	require.True(t, outer.Inner.Verify())
}
