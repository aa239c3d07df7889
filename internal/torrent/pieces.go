package torrent

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the size of one SHA-1 piece hash.
const HashSize = 20

func EncodePieces(raw []byte) string {
	return hex.EncodeToString(raw)
}

func DecodePieces(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: pieces: %v", ErrEncoding, err)
	}
	return raw, nil
}
