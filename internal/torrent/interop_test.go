package torrent

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalOutputLoadsInAnacrolix(t *testing.T) {
	record := Record{
		Announce:     "http://tracker.example.com/announce",
		AnnounceList: [][]string{{"http://tracker.example.com/announce"}, {"udp://backup.example.com:6969"}},
		CreationDate: uint64Ptr(1700000000),
		Comment:      "interop",
		CreatedBy:    "batter",
		PieceLength:  32768,
		Pieces:       strings.Repeat("0123456789abcdef0123456789abcdef01234567", 2),
		Private:      true,
		Name:         "folder",
		Files: []File{
			{Path: []string{"a", "one.bin"}, Length: 40000},
			{Path: []string{"two.bin"}, Length: 1000},
		},
	}
	encoded, err := ToBencoded(record)
	require.Nil(t, err)

	mi, err := metainfo.Load(bytes.NewReader(encoded))
	require.Nil(t, err)
	assert.Equal(t, record.Announce, mi.Announce)
	assert.Equal(t, "interop", mi.Comment)
	assert.Equal(t, "batter", mi.CreatedBy)
	assert.Equal(t, int64(1700000000), mi.CreationDate)

	info, err := mi.UnmarshalInfo()
	require.Nil(t, err)
	assert.Equal(t, "folder", info.Name)
	assert.Equal(t, int64(32768), info.PieceLength)
	assert.Equal(t, record.Pieces, hex.EncodeToString(info.Pieces))
	if assert.NotNil(t, info.Private) {
		assert.True(t, *info.Private)
	}
	if assert.Len(t, info.Files, 2) {
		assert.Equal(t, []string{"a", "one.bin"}, info.Files[0].Path)
		assert.Equal(t, int64(40000), info.Files[0].Length)
	}

	hash, err := record.InfoHash()
	require.Nil(t, err)
	assert.Equal(t, hex.EncodeToString(hash[:]), mi.HashInfoBytes().HexString())
}
