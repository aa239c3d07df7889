package logic

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WendelHime/batter/internal/decoder"
	"github.com/WendelHime/batter/internal/store"
	"github.com/WendelHime/batter/internal/torrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const example = "d8:announce13:http://a.com/4:infod6:lengthi100e4:name4:test12:piece lengthi16384e6:pieces20:AAAAAAAAAAAAAAAAAAAAee"

func newTestLibrary(t *testing.T) (Library, store.Store) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := store.NewMemStore()
	require.Nil(t, err)
	return NewLibrary(decoder.NewDecoder(logger), s, logger, io.Discard), s
}

func TestImportAndExport(t *testing.T) {
	lib, s := newTestLibrary(t)

	id, meta, err := lib.Import(strings.NewReader(example))
	require.Nil(t, err)
	assert.Equal(t, "test", meta.Torrent.Name)
	assert.Equal(t, "b869cf941e986bdd3252bb6a40ba9b68146b3c2a", meta.InfoHash.String())

	stored, err := s.Get(id)
	assert.Nil(t, err)
	assert.Equal(t, meta.Torrent, stored)

	var out bytes.Buffer
	assert.Nil(t, lib.Export(id, &out))
	assert.Equal(t, example, out.String())

	_, _, err = lib.Import(strings.NewReader(example))
	assert.ErrorIs(t, err, store.ErrDuplicatePieces)

	entries, err := lib.List()
	assert.Nil(t, err)
	assert.Len(t, entries, 1)
}

func TestImportRejectsMalformedUpload(t *testing.T) {
	lib, s := newTestLibrary(t)

	_, _, err := lib.Import(strings.NewReader("d8:announce13:http://a.com/e"))
	assert.ErrorIs(t, err, torrent.ErrSchema)

	entries, err := s.List()
	assert.Nil(t, err)
	assert.Empty(t, entries)
}

func TestExportUnknownID(t *testing.T) {
	lib, _ := newTestLibrary(t)
	err := lib.Export("missing", io.Discard)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"one.torrent":   example,
		"two.torrent":   strings.Replace(example, "AAAAAAAAAAAAAAAAAAAA", "BBBBBBBBBBBBBBBBBBBB", 1),
		"dup.torrent":   example,
		"bad.torrent":   "i01e",
		"notes.txt":     "ignored",
		"three.torrent": strings.Replace(example, "AAAAAAAAAAAAAAAAAAAA", "CCCCCCCCCCCCCCCCCCCC", 1),
	}
	for name, content := range files {
		require.Nil(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	lib, s := newTestLibrary(t)
	report, err := lib.ImportDir(dir)
	require.Nil(t, err)

	// one.torrent and dup.torrent race for the same pieces; exactly one wins
	assert.Len(t, report.Imported, 3)
	assert.Len(t, report.Failed, 2)
	assert.Contains(t, report.Failed, filepath.Join(dir, "bad.torrent"))
	assert.NotContains(t, report.Imported, filepath.Join(dir, "notes.txt"))

	entries, err := s.List()
	assert.Nil(t, err)
	assert.Len(t, entries, 3)
}
