package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/WendelHime/batter/internal/torrent"
	"github.com/jackpal/bencode-go"
)

const snapshotVersion = 1

type snapshot struct {
	Version  int             `bencode:"version"`
	Torrents []snapshotEntry `bencode:"torrents"`
}

// snapshotEntry holds a record as its canonical metafile bytes.
type snapshotEntry struct {
	ID       string `bencode:"id"`
	Metafile string `bencode:"metafile"`
}

func Save(w io.Writer, s Store) error {
	entries, err := s.List()
	if err != nil {
		return err
	}

	snap := snapshot{Version: snapshotVersion, Torrents: make([]snapshotEntry, 0, len(entries))}
	for _, e := range entries {
		metafile, err := torrent.ToBencoded(e.Record)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.ID, err)
		}
		snap.Torrents = append(snap.Torrents, snapshotEntry{ID: string(e.ID), Metafile: string(metafile)})
	}
	return bencode.Marshal(w, snap)
}

func Load(r io.Reader) (Store, error) {
	var snap snapshot
	if err := bencode.Unmarshal(r, &snap); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	s, err := newMemStore()
	if err != nil {
		return nil, err
	}
	for _, e := range snap.Torrents {
		record, err := torrent.FromBencoded([]byte(e.Metafile))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.ID, err)
		}
		if err := s.insert(ID(e.ID), record); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SaveFile replaces the snapshot at path atomically.
func SaveFile(path string, s Store) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Save(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads the snapshot at path. A missing file yields an empty store.
func LoadFile(path string) (Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewMemStore()
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}
