package cryptoutil

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// HashPayload hashes an arbitrary byte payload to the 32-byte digest that
// Sign/Verify operate over.
func HashPayload(payload []byte) [32]byte {
	var out [32]byte
	copy(out[:], chainhash.HashB(payload))
	return out
}
