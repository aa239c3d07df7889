package decoder

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"log/slog"

	"github.com/WendelHime/batter/internal/bencode"
	"github.com/WendelHime/batter/internal/shared/models"
	"github.com/WendelHime/batter/internal/torrent"
	zbencode "github.com/zeebo/bencode"
)

type MetafileDecoder interface {
	Decode(io.Reader) (models.Metafile, error)
}

type Option func(*decoder)

// WithMaxSize bounds how many bytes Decode reads from one upload.
func WithMaxSize(n int64) Option {
	return func(d *decoder) {
		d.maxSize = n
	}
}

// WithStrict rejects metafiles with duplicate or unsorted dictionary keys.
func WithStrict() Option {
	return func(d *decoder) {
		d.opts = append(d.opts, bencode.Strict())
	}
}

type decoder struct {
	log     *slog.Logger
	maxSize int64
	opts    []bencode.Option
}

func NewDecoder(logger *slog.Logger, opts ...Option) MetafileDecoder {
	d := &decoder{log: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// rawMetafile is the view of the upload other bencode libraries get.
// When it disagrees with the info bytes the record was built from, the
// upload carries more than one info dictionary.
type rawMetafile struct {
	Info zbencode.RawMessage `bencode:"info"`
}

func (d *decoder) Decode(metafile io.Reader) (models.Metafile, error) {
	var response models.Metafile
	data, err := ReadAll(metafile, d.maxSize)
	if err != nil {
		d.log.Error("failed to read metafile", slog.Any("error", err))
		return response, err
	}

	response.Torrent, err = torrent.FromBencoded(data, d.opts...)
	if err != nil {
		d.log.Error("failed to decode metafile", slog.Any("error", err))
		return response, err
	}

	response.InfoHash, err = d.infoHash(data)
	if err != nil {
		d.log.Error("failed to calculate info hash", slog.Any("error", err))
		return response, err
	}

	response.PiecesHashes, err = calculatePiecesHashes(response.Torrent)
	if err != nil {
		d.log.Error("failed to calculate pieces hashes", slog.Any("error", err))
		return response, err
	}

	d.log.Debug("decoded metafile",
		slog.String("name", response.Torrent.Name),
		slog.String("info_hash", response.InfoHash.String()),
		slog.Int("pieces", len(response.PiecesHashes)))
	return response, nil
}

// infoHash hashes the info dictionary exactly as uploaded, so it matches
// what trackers and peers compute even when the keys were not sorted.
func (d *decoder) infoHash(data []byte) (models.Hash, error) {
	info, ok, err := bencode.RawField(data, "info", d.opts...)
	if err != nil {
		return models.Hash{}, err
	}
	if !ok {
		return models.Hash{}, fmt.Errorf("%w: missing %q", torrent.ErrSchema, "info")
	}

	var raw rawMetafile
	if err := zbencode.DecodeBytes(data, &raw); err != nil {
		d.log.Warn("metafile not readable as a struct", slog.Any("error", err))
	} else if !bytes.Equal(raw.Info, info) {
		return models.Hash{}, fmt.Errorf("%w: %q appears more than once", bencode.ErrDuplicateKey, "info")
	}
	return calculateInfoHash(info), nil
}

func calculateInfoHash(info []byte) models.Hash {
	hash := sha1.Sum(info)
	return models.Hash{Hash: hash[:]}
}

func calculatePiecesHashes(record torrent.Record) ([]models.Hash, error) {
	hashes, err := record.PieceHashes()
	if err != nil {
		return nil, err
	}

	piecesHashes := make([]models.Hash, 0, len(hashes))
	for _, hash := range hashes {
		piecesHashes = append(piecesHashes, models.Hash{Hash: append([]byte(nil), hash[:]...)})
	}
	return piecesHashes, nil
}
