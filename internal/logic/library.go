package logic

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/WendelHime/batter/internal/decoder"
	"github.com/WendelHime/batter/internal/shared/models"
	"github.com/WendelHime/batter/internal/store"
	"github.com/WendelHime/batter/internal/torrent"
	"github.com/schollz/progressbar/v3"
)

type Library interface {
	Import(metafile io.Reader) (store.ID, models.Metafile, error)
	ImportDir(dir string) (ImportReport, error)
	Export(id store.ID, w io.Writer) error
	List() ([]store.Entry, error)
}

type ImportReport struct {
	Imported map[string]store.ID
	Failed   map[string]error
}

type library struct {
	d        decoder.MetafileDecoder
	store    store.Store
	log      *slog.Logger
	progress io.Writer
	workers  int
}

// NewLibrary wires the decoder to the store. ImportDir draws its progress
// bar on progress.
func NewLibrary(d decoder.MetafileDecoder, s store.Store, logger *slog.Logger, progress io.Writer) Library {
	return &library{d: d, store: s, log: logger, progress: progress, workers: runtime.NumCPU()}
}

func (l *library) Import(metafile io.Reader) (store.ID, models.Metafile, error) {
	meta, err := l.d.Decode(metafile)
	if err != nil {
		return "", meta, err
	}

	id, err := l.store.Put(meta.Torrent)
	if err != nil {
		l.log.Error("failed to store torrent", slog.String("name", meta.Torrent.Name), slog.Any("error", err))
		return "", meta, err
	}

	l.log.Info("torrent imported",
		slog.String("id", string(id)),
		slog.String("name", meta.Torrent.Name),
		slog.String("info_hash", meta.InfoHash.String()))
	return id, meta, nil
}

// ImportDir imports every *.torrent file directly under dir. A file that
// fails does not stop the others; its error is kept in the report.
func (l *library) ImportDir(dir string) (ImportReport, error) {
	report := ImportReport{Imported: make(map[string]store.ID), Failed: make(map[string]error)}
	paths, err := filepath.Glob(filepath.Join(dir, "*.torrent"))
	if err != nil {
		return report, err
	}
	sort.Strings(paths)
	l.log.Info("importing directory", slog.String("dir", dir), slog.Int("files", len(paths)))

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(l.progress),
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionShowCount(),
	)

	queue := make(chan string, len(paths))
	for _, p := range paths {
		queue <- p
	}
	close(queue)

	var mutex sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				id, err := l.importFile(path)

				mutex.Lock()
				if err != nil {
					report.Failed[path] = err
				} else {
					report.Imported[path] = id
				}
				mutex.Unlock()
				bar.Add(1)
			}
		}()
	}
	wg.Wait()
	bar.Finish()

	l.log.Info("directory imported",
		slog.String("dir", dir),
		slog.Int("imported", len(report.Imported)),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

func (l *library) importFile(path string) (store.ID, error) {
	f, err := os.Open(path)
	if err != nil {
		l.log.Warn("failed to open metafile", slog.String("path", path), slog.Any("error", err))
		return "", err
	}
	defer f.Close()

	id, _, err := l.Import(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return id, nil
}

func (l *library) Export(id store.ID, w io.Writer) error {
	record, err := l.store.Get(id)
	if err != nil {
		return err
	}

	data, err := torrent.ToBencoded(record)
	if err != nil {
		l.log.Error("failed to encode torrent", slog.String("id", string(id)), slog.Any("error", err))
		return err
	}

	_, err = w.Write(data)
	return err
}

func (l *library) List() ([]store.Entry, error) {
	return l.store.List()
}
