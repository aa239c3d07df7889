package torrent

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPieceHashes(t *testing.T) {
	r := Record{Pieces: strings.Repeat("00", 20) + strings.Repeat("ff", 20)}
	hashes, err := r.PieceHashes()
	assert.Nil(t, err)
	if assert.Len(t, hashes, 2) {
		assert.Equal(t, [20]byte{}, hashes[0])
		assert.Equal(t, byte(0xff), hashes[1][19])
	}

	_, err = Record{Pieces: "0000"}.PieceHashes()
	assert.ErrorIs(t, err, ErrSchema)

	_, err = Record{Pieces: "0g"}.PieceHashes()
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestInfoHash(t *testing.T) {
	r, err := FromBencoded([]byte(singleFileExample))
	require.Nil(t, err)

	hash, err := r.InfoHash()
	assert.Nil(t, err)
	assert.Equal(t, "b869cf941e986bdd3252bb6a40ba9b68146b3c2a", hex.EncodeToString(hash[:]))

	r.Comment = "does not touch info"
	again, err := r.InfoHash()
	assert.Nil(t, err)
	assert.Equal(t, hash, again)

	r.Private = true
	private, err := r.InfoHash()
	assert.Nil(t, err)
	assert.NotEqual(t, hash, private)
}

func TestTotalLength(t *testing.T) {
	assert.Equal(t, uint64(0), Record{}.TotalLength())
	assert.Equal(t, uint64(9), Record{Length: uint64Ptr(9)}.TotalLength())
	assert.Equal(t, uint64(30), Record{Files: []File{{Length: 10}, {Length: 20}}}.TotalLength())
}

func TestTrackers(t *testing.T) {
	assert.Nil(t, Record{}.Trackers())
	assert.Equal(t, [][]string{{"a"}}, Record{Announce: "a"}.Trackers())
	assert.Equal(t, [][]string{{"b", "c"}}, Record{Announce: "a", AnnounceList: [][]string{{"b", "c"}}}.Trackers())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "dir/sub/file.txt", File{Path: []string{"dir", "sub", "file.txt"}}.Name())
}

func TestValidate(t *testing.T) {
	valid := func() Record {
		return Record{
			Announce:    "http://a.com/",
			PieceLength: 16384,
			Pieces:      strings.Repeat("41", 20),
			Name:        "test",
			Length:      uint64Ptr(100),
		}
	}
	var tests = []struct {
		name   string
		modify func(r *Record)
		assert func(t *testing.T, err error)
	}{
		{
			name:   "valid single file",
			modify: func(r *Record) {},
			assert: func(t *testing.T, err error) {
				assert.Nil(t, err)
			},
		},
		{
			name: "valid multi file",
			modify: func(r *Record) {
				r.Length = nil
				r.Files = []File{{Path: []string{"a"}, Length: 1}}
			},
			assert: func(t *testing.T, err error) {
				assert.Nil(t, err)
			},
		},
		{
			name: "md5sum alongside files",
			modify: func(r *Record) {
				r.Length = nil
				r.MD5Sum = "d41d8cd98f00b204e9800998ecf8427e"
				r.Files = []File{{Path: []string{"a"}, Length: 1}}
			},
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name:   "empty announce",
			modify: func(r *Record) { r.Announce = "" },
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name:   "empty name",
			modify: func(r *Record) { r.Name = "" },
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name:   "zero piece length",
			modify: func(r *Record) { r.PieceLength = 0 },
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name:   "empty pieces",
			modify: func(r *Record) { r.Pieces = "" },
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name:   "pieces not a multiple of forty hex characters",
			modify: func(r *Record) { r.Pieces = strings.Repeat("41", 21) },
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name:   "pieces with invalid hex",
			modify: func(r *Record) { r.Pieces = strings.Repeat("zz", 20) },
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEncoding)
			},
		},
		{
			name: "both layouts",
			modify: func(r *Record) {
				r.Files = []File{{Path: []string{"a"}, Length: 1}}
			},
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name:   "no layout",
			modify: func(r *Record) { r.Length = nil },
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name: "file with empty path",
			modify: func(r *Record) {
				r.Length = nil
				r.Files = []File{{Length: 1}}
			},
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.modify(&r)
			tt.assert(t, r.Validate())
		})
	}
}
