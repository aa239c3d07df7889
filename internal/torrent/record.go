package torrent

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"strings"

	"github.com/WendelHime/batter/internal/bencode"
)

var (
	ErrSchema   = errors.New("schema error")
	ErrEncoding = errors.New("encoding error")
)

// Record is the typed form of a .torrent metafile. Exactly one of Length
// and Files is populated: Length for single-file torrents, Files for
// multi-file torrents.
type Record struct {
	Announce     string     `json:"announce"`
	AnnounceList [][]string `json:"announce_list,omitempty"`
	CreationDate *uint64    `json:"creation_date,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	CreatedBy    string     `json:"created_by,omitempty"`
	Encoding     string     `json:"encoding,omitempty"`

	PieceLength uint64 `json:"piece_length"`
	// Pieces is the lowercase hex form of the concatenated 20-byte SHA-1 hashes.
	Pieces  string `json:"pieces"`
	Private bool   `json:"private"`
	Name    string `json:"name"`

	Length *uint64 `json:"length,omitempty"`
	MD5Sum string  `json:"md5sum,omitempty"`

	Files []File `json:"files,omitempty"`
}

type File struct {
	Path   []string `json:"path"`
	Length uint64   `json:"length"`
	MD5Sum string   `json:"md5sum,omitempty"`
}

func (f File) Name() string {
	return strings.Join(f.Path, "/")
}

func (r Record) IsMultiFile() bool {
	return len(r.Files) > 0
}

func (r Record) TotalLength() uint64 {
	if !r.IsMultiFile() {
		if r.Length == nil {
			return 0
		}
		return *r.Length
	}
	var total uint64
	for _, f := range r.Files {
		total += f.Length
	}
	return total
}

// Trackers returns the announce-list tiers, or a single tier holding the
// announce URL when there is no list.
func (r Record) Trackers() [][]string {
	if len(r.AnnounceList) > 0 {
		return r.AnnounceList
	}
	if r.Announce != "" {
		return [][]string{{r.Announce}}
	}
	return nil
}

func (r Record) PieceHashes() ([][20]byte, error) {
	raw, err := DecodePieces(r.Pieces)
	if err != nil {
		return nil, err
	}
	if len(raw)%HashSize != 0 {
		return nil, fmt.Errorf("%w: pieces is %d bytes, not a multiple of %d", ErrSchema, len(raw), HashSize)
	}
	hashes := make([][20]byte, len(raw)/HashSize)
	for i := range hashes {
		copy(hashes[i][:], raw[i*HashSize:(i+1)*HashSize])
	}
	return hashes, nil
}

// InfoHash is the SHA-1 of the canonical encoding of the info dictionary.
func (r Record) InfoHash() ([20]byte, error) {
	info, err := r.infoValue()
	if err != nil {
		return [20]byte{}, err
	}
	b, err := bencode.Encode(info)
	if err != nil {
		return [20]byte{}, err
	}
	return sha1.Sum(b), nil
}

// Validate checks the record can be persisted and re-encoded.
func (r Record) Validate() error {
	if r.Announce == "" {
		return fmt.Errorf("%w: announce is empty", ErrSchema)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrSchema)
	}
	if r.PieceLength == 0 {
		return fmt.Errorf("%w: piece length is zero", ErrSchema)
	}
	if r.Pieces == "" {
		return fmt.Errorf("%w: pieces is empty", ErrSchema)
	}
	if _, err := r.PieceHashes(); err != nil {
		return err
	}
	if err := r.checkLayout(); err != nil {
		return err
	}
	for i, f := range r.Files {
		if len(f.Path) == 0 {
			return fmt.Errorf("%w: files[%d]: empty path", ErrSchema, i)
		}
	}
	return nil
}

func (r Record) checkLayout() error {
	switch {
	case r.IsMultiFile() && r.Length != nil:
		return fmt.Errorf("%w: both length and files are set", ErrSchema)
	case r.IsMultiFile() && r.MD5Sum != "":
		return fmt.Errorf("%w: md5sum is set on a multi-file torrent", ErrSchema)
	case !r.IsMultiFile() && r.Length == nil:
		return fmt.Errorf("%w: neither length nor files is set", ErrSchema)
	}
	return nil
}
