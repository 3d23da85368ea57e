// Package cryptoutil implements the crypto primitives shared by every other
// package: secp256k1 key generation, ECIES encrypt/decrypt, and Schnorr
// sign/verify.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// GenerateSecretKey returns a fresh random secp256k1 secret key.
func GenerateSecretKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// sharedSecret derives the ECDH shared secret between priv and pub: the
// raw 32-byte X-coordinate of priv.D * pub, not hashed.
func sharedSecret(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	ss := secp256k1.GenerateSharedSecret(priv, pub)
	out := make([]byte, len(ss))
	copy(out, ss)
	return out
}

// ECIESEncrypt encrypts plaintext to recipient's public key: an ephemeral
// secp256k1 keypair is generated, its ECDH shared secret with recipient
// keys an AES-256-GCM seal, and the ciphertext is
// (ephemeral_pubkey_compressed || nonce || sealed).
func ECIESEncrypt(recipient *btcec.PublicKey, plaintext []byte) ([]byte, error) {
	if recipient == nil {
		return nil, errors.New("cryptoutil: nil recipient key")
	}
	ephemeral, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: ephemeral key: %w", err)
	}
	key := sharedSecret(ephemeral, recipient)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptoutil: nonce: %w", err)
	}

	ephemeralPub := ephemeral.PubKey().SerializeCompressed()
	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(ephemeralPub)+len(nonce)+len(sealed))
	out = append(out, ephemeralPub...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// ECIESDecrypt reverses ECIESEncrypt. A decryption or authentication
// failure is returned as an error; callers must treat such a failure as
// absent data, not a hard error, when it occurs after a successful
// transport round trip.
func ECIESDecrypt(secret *btcec.PrivateKey, ciphertext []byte) ([]byte, error) {
	const pubKeyLen = 33
	if secret == nil {
		return nil, errors.New("cryptoutil: nil secret key")
	}
	if len(ciphertext) < pubKeyLen {
		return nil, errors.New("cryptoutil: ciphertext too short")
	}
	ephemeralPub, err := btcec.ParsePubKey(ciphertext[:pubKeyLen])
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: parse ephemeral key: %w", err)
	}
	key := sharedSecret(secret, ephemeralPub)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: gcm: %w", err)
	}
	rest := ciphertext[pubKeyLen:]
	if len(rest) < gcm.NonceSize() {
		return nil, errors.New("cryptoutil: ciphertext missing nonce")
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: open: %w", err)
	}
	return plaintext, nil
}
