package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/WendelHime/batter/internal/config"
	"github.com/WendelHime/batter/internal/decoder"
	"github.com/WendelHime/batter/internal/logic"
	"github.com/WendelHime/batter/internal/store"
	"github.com/WendelHime/batter/internal/torrent"
	"github.com/spf13/pflag"
)

const usage = `usage: batter [flags] <command> [args]

commands:
  inspect FILE       print the decoded metafile as JSON
  normalize IN OUT   rewrite a metafile in canonical form
  import PATH...     store metafiles (files or directories of *.torrent)
  export ID OUT      write a stored torrent to OUT
  list               list stored torrents

flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var configPath string
	cfg := config.Default()

	flags := pflag.NewFlagSet("batter", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&cfg.StorePath, "store", cfg.StorePath, "snapshot file of stored torrents")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log output file")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.Int64Var(&cfg.MaxUploadBytes, "max-size", cfg.MaxUploadBytes, "largest metafile accepted in bytes, 0 for no limit")
	flags.BoolVar(&cfg.Strict, "strict", cfg.Strict, "reject duplicate or unsorted dictionary keys")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		// flags given on the command line win over the file
		flags.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "store":
				loaded.StorePath = cfg.StorePath
			case "log-file":
				loaded.LogFile = cfg.LogFile
			case "log-level":
				loaded.LogLevel = cfg.LogLevel
			case "max-size":
				loaded.MaxUploadBytes = cfg.MaxUploadBytes
			case "strict":
				loaded.Strict = cfg.Strict
			}
		})
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return errors.New("missing command")
	}

	level, _ := cfg.Level()
	logOut, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logOut.Close()
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	opts := []decoder.Option{decoder.WithMaxSize(cfg.MaxUploadBytes)}
	if cfg.Strict {
		opts = append(opts, decoder.WithStrict())
	}
	cli := &cli{cfg: cfg, log: logger, decoder: decoder.NewDecoder(logger, opts...), stdout: stdout, stderr: stderr}

	command, cmdArgs := rest[0], rest[1:]
	err = cli.dispatch(command, cmdArgs)
	if err != nil {
		logger.Error("command failed", slog.String("command", command), slog.Any("error", err))
	}
	return err
}

type cli struct {
	cfg     config.Config
	log     *slog.Logger
	decoder decoder.MetafileDecoder
	stdout  io.Writer
	stderr  io.Writer
}

func (c *cli) dispatch(command string, args []string) error {
	switch command {
	case "inspect":
		if len(args) != 1 {
			return errors.New("inspect takes one file")
		}
		return c.inspect(args[0])
	case "normalize":
		if len(args) != 2 {
			return errors.New("normalize takes an input and an output file")
		}
		return c.normalize(args[0], args[1])
	case "import":
		if len(args) == 0 {
			return errors.New("import takes at least one path")
		}
		return c.withLibrary(true, func(lib logic.Library) error { return c.importPaths(lib, args) })
	case "export":
		if len(args) != 2 {
			return errors.New("export takes an id and an output file")
		}
		return c.withLibrary(false, func(lib logic.Library) error { return c.export(lib, store.ID(args[0]), args[1]) })
	case "list":
		return c.withLibrary(false, c.list)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

type inspection struct {
	InfoHash    string         `json:"info_hash"`
	PieceCount  int            `json:"piece_count"`
	TotalLength uint64         `json:"total_length"`
	Torrent     torrent.Record `json:"torrent"`
}

func (c *cli) inspect(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	meta, err := c.decoder.Decode(f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(inspection{
		InfoHash:    meta.InfoHash.String(),
		PieceCount:  len(meta.PiecesHashes),
		TotalLength: meta.Torrent.TotalLength(),
		Torrent:     meta.Torrent,
	})
}

func (c *cli) normalize(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	meta, err := c.decoder.Decode(f)
	if err != nil {
		return err
	}
	data, err := torrent.ToBencoded(meta.Torrent)
	if err != nil {
		return err
	}
	c.log.Info("normalized metafile", slog.String("in", in), slog.String("out", out))
	return os.WriteFile(out, data, 0o644)
}

// withLibrary loads the store snapshot, runs fn and saves the snapshot
// back when save is set.
func (c *cli) withLibrary(save bool, fn func(logic.Library) error) error {
	s, err := store.LoadFile(c.cfg.StorePath)
	if err != nil {
		return err
	}
	lib := logic.NewLibrary(c.decoder, s, c.log, c.stderr)

	fnErr := fn(lib)
	if save {
		if err := store.SaveFile(c.cfg.StorePath, s); err != nil {
			return errors.Join(fnErr, err)
		}
	}
	return fnErr
}

func (c *cli) importPaths(lib logic.Library, paths []string) error {
	failed := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			report, err := lib.ImportDir(path)
			if err != nil {
				return err
			}
			for _, p := range sortedKeys(report.Imported) {
				fmt.Fprintf(c.stdout, "%s\t%s\n", report.Imported[p], p)
			}
			for _, p := range sortedKeys(report.Failed) {
				fmt.Fprintf(c.stderr, "%s: %v\n", p, report.Failed[p])
			}
			failed += len(report.Failed)
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		id, _, err := lib.Import(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(c.stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(c.stdout, "%s\t%s\n", id, path)
	}

	if failed > 0 {
		return fmt.Errorf("%d metafiles failed to import", failed)
	}
	return nil
}

func (c *cli) export(lib logic.Library, id store.ID, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := lib.Export(id, f); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	return f.Close()
}

func (c *cli) list(lib logic.Library) error {
	entries, err := lib.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(c.stdout, "%s\t%s\t%d\n", e.ID, e.Record.Name, e.Record.TotalLength())
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
