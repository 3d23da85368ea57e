package cryptoutil

import (
	"crypto/hmac"
	"crypto/sha512"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// DeriveChild performs one non-hardened, BIP32-style child derivation of
// secret at the given index: a tweak is derived from HMAC-SHA512 keyed by
// secret's own bytes over (compressed_pubkey || index_be), and the child
// scalar is (tweak + secret) mod N. Because the key derives its own
// tweak material there is no separate chain code to track — a PathedKey
// is simply the (path, secret) pair.
func DeriveChild(secret *btcec.PrivateKey, index uint32) (*btcec.PrivateKey, error) {
	if secret == nil {
		return nil, errors.New("cryptoutil: nil secret")
	}
	pub := secret.PubKey().SerializeCompressed()
	data := make([]byte, 0, len(pub)+4)
	data = append(data, pub...)
	data = append(data, byte(index>>24), byte(index>>16), byte(index>>8), byte(index))

	secretBytes := secret.Serialize()
	mac := hmac.New(sha512.New, secretBytes)
	mac.Write(data)
	i := mac.Sum(nil)

	var tweak secp256k1.ModNScalar
	if overflow := tweak.SetByteSlice(i[:32]); overflow {
		return nil, errors.New("cryptoutil: derived tweak out of range")
	}

	var parentScalar secp256k1.ModNScalar
	parentScalar.Set(&secret.Key)

	childScalar := new(secp256k1.ModNScalar).Add2(&tweak, &parentScalar)
	if childScalar.IsZero() {
		return nil, errors.New("cryptoutil: derived zero scalar")
	}
	return secp256k1.NewPrivateKey(childScalar), nil
}
