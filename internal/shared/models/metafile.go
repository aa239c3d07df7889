package models

import (
	"encoding/hex"

	"github.com/WendelHime/batter/internal/torrent"
)

// Metafile is a decoded upload together with the hashes derived from it.
type Metafile struct {
	Torrent      torrent.Record
	InfoHash     Hash
	PiecesHashes []Hash
}

type Hash struct {
	Hash []byte
}

func (h Hash) String() string {
	return hex.EncodeToString(h.Hash)
}
