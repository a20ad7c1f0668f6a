package randgen

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/raffle-labs/raffle/types"
)

// GenerateWords derives n random words for the given request. Word i is
// HMAC-SHA256(key, requestID || i) read as a big-endian integer, so the
// result is deterministic with each given input.
func GenerateWords(key []byte, requestID types.RequestID, n uint32) types.RandomWords {
	words := make(types.RandomWords, 0, n)

	for i := uint32(0); i < n; i++ {
		var iBz [4]byte
		binary.BigEndian.PutUint32(iBz[:], i)

		digest := hmac.New(sha256.New, key)
		digest.Write(requestID.Bytes())
		digest.Write(iBz[:])

		words = append(words, new(big.Int).SetBytes(digest.Sum(nil)))
	}

	return words
}
