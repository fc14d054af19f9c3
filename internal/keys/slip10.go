package keys

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
)

const hardenedOffset uint32 = 0x80000000

// solanaPath is m/44'/501'/0'/0', the derivation path used by Phantom and solana-keygen
var solanaPath = []uint32{44, 501, 0, 0}

// deriveEd25519 derives a SLIP-0010 ed25519 private seed along path (all hardened).
func deriveEd25519(seed []byte, path []uint32) ([]byte, error) {
	if len(seed) < 16 {
		return nil, errors.New("seed too short")
	}

	key, chain := hmacSplit([]byte("ed25519 seed"), seed)

	data := make([]byte, 37)
	for _, index := range path {
		data[0] = 0x00
		copy(data[1:33], key)
		binary.BigEndian.PutUint32(data[33:], index|hardenedOffset)

		nextKey, nextChain := hmacSplit(chain, data)
		clear(key)
		key, chain = nextKey, nextChain
	}
	clear(data)
	clear(chain)

	return key, nil
}

func hmacSplit(key, data []byte) ([]byte, []byte) {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}
