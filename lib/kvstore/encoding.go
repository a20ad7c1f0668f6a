package kvstore

import "encoding/binary"

// Uint64ToBytes encodes v big-endian so keys sort numerically in bolt
func Uint64ToBytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)

	return buf[:]
}

func BytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
