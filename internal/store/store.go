package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/WendelHime/batter/internal/torrent"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-memdb"
)

var (
	ErrNotFound        = errors.New("torrent not found")
	ErrDuplicatePieces = errors.New("torrent with the same pieces already stored")
	ErrInvalidRecord   = errors.New("invalid torrent record")
)

type ID string

type Entry struct {
	ID     ID
	Record torrent.Record
}

// Store assigns identity to records and keeps pieces unique across them.
type Store interface {
	Put(torrent.Record) (ID, error)
	Get(ID) (torrent.Record, error)
	FindByPieces(pieces string) (Entry, error)
	List() ([]Entry, error)
	Delete(ID) error
}

const table = "torrent"

type row struct {
	ID     string
	Pieces string
	Record torrent.Record
}

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		table: {
			Name: table,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"pieces": {
					Name:    "pieces",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Pieces"},
				},
			},
		},
	},
}

type memStore struct {
	db *memdb.MemDB
}

func NewMemStore() (Store, error) {
	return newMemStore()
}

func newMemStore() (*memStore, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}
	return &memStore{db: db}, nil
}

func (s *memStore) Put(record torrent.Record) (ID, error) {
	if err := record.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	if err := s.insert(ID(id.String()), record); err != nil {
		return "", err
	}
	return ID(id.String()), nil
}

func (s *memStore) insert(id ID, record torrent.Record) error {
	record = clone(record)
	record.Pieces = strings.ToLower(record.Pieces)

	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(table, "pieces", record.Pieces)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicatePieces, existing.(*row).ID)
	}
	existing, err = txn.First(table, "id", string(id))
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("id %s already stored", id)
	}

	if err := txn.Insert(table, &row{ID: string(id), Pieces: record.Pieces, Record: record}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *memStore) Get(id ID) (torrent.Record, error) {
	txn := s.db.Txn(false)
	raw, err := txn.First(table, "id", string(id))
	if err != nil {
		return torrent.Record{}, err
	}
	if raw == nil {
		return torrent.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(raw.(*row).Record), nil
}

func (s *memStore) FindByPieces(pieces string) (Entry, error) {
	txn := s.db.Txn(false)
	raw, err := txn.First(table, "pieces", strings.ToLower(pieces))
	if err != nil {
		return Entry{}, err
	}
	if raw == nil {
		return Entry{}, ErrNotFound
	}
	r := raw.(*row)
	return Entry{ID: ID(r.ID), Record: clone(r.Record)}, nil
}

// List returns every entry ordered by id.
func (s *memStore) List() ([]Entry, error) {
	txn := s.db.Txn(false)
	it, err := txn.Get(table, "id")
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0)
	for obj := it.Next(); obj != nil; obj = it.Next() {
		r := obj.(*row)
		entries = append(entries, Entry{ID: ID(r.ID), Record: clone(r.Record)})
	}
	return entries, nil
}

func (s *memStore) Delete(id ID) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(table, "id", string(id))
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := txn.Delete(table, raw); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// clone copies everything a caller could mutate through a Record.
func clone(r torrent.Record) torrent.Record {
	if r.AnnounceList != nil {
		tiers := make([][]string, len(r.AnnounceList))
		for i, tier := range r.AnnounceList {
			tiers[i] = append([]string(nil), tier...)
		}
		r.AnnounceList = tiers
	}
	if r.CreationDate != nil {
		date := *r.CreationDate
		r.CreationDate = &date
	}
	if r.Length != nil {
		length := *r.Length
		r.Length = &length
	}
	if r.Files != nil {
		files := make([]torrent.File, len(r.Files))
		for i, f := range r.Files {
			f.Path = append([]string(nil), f.Path...)
			files[i] = f
		}
		r.Files = files
	}
	return r
}
