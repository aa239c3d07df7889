package torrent

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/WendelHime/batter/internal/bencode"
)

// FromBencoded decodes a complete metafile.
func FromBencoded(data []byte, opts ...bencode.Option) (Record, error) {
	v, err := bencode.DecodeComplete(data, opts...)
	if err != nil {
		return Record{}, fmt.Errorf("decode metafile: %w", err)
	}
	return FromValue(v)
}

// ToBencoded returns the canonical encoding of r.
func ToBencoded(r Record) ([]byte, error) {
	v, err := ToValue(r)
	if err != nil {
		return nil, err
	}
	return bencode.Encode(v)
}

// FromValue maps a decoded metafile tree onto a Record. The layout is
// multi-file when info carries a non-empty files list, single-file otherwise.
func FromValue(v bencode.Value) (Record, error) {
	var r Record
	root, ok := v.(bencode.Dict)
	if !ok {
		return r, fmt.Errorf("%w: metafile is %s, want dictionary", ErrSchema, kindOf(v))
	}

	var err error
	if r.Announce, err = requiredText(root, "announce"); err != nil {
		return r, err
	}
	if r.AnnounceList, err = announceList(root); err != nil {
		return r, err
	}
	if date, ok, err := optionalUint(root, "creation date"); err != nil {
		return r, err
	} else if ok {
		r.CreationDate = &date
	}
	if r.Comment, _, err = optionalText(root, "comment"); err != nil {
		return r, err
	}
	if r.CreatedBy, _, err = optionalText(root, "created by"); err != nil {
		return r, err
	}
	if r.Encoding, _, err = optionalText(root, "encoding"); err != nil {
		return r, err
	}

	infoValue, ok := root.Get("info")
	if !ok {
		return r, fmt.Errorf("%w: missing %q", ErrSchema, "info")
	}
	info, ok := infoValue.(bencode.Dict)
	if !ok {
		return r, fmt.Errorf("%w: info is %s, want dictionary", ErrSchema, kindOf(infoValue))
	}
	if err := r.readInfo(info); err != nil {
		return r, fmt.Errorf("info: %w", err)
	}
	return r, nil
}

func (r *Record) readInfo(info bencode.Dict) error {
	var err error
	if r.PieceLength, err = requiredUint(info, "piece length"); err != nil {
		return err
	}

	pieces, ok := info.Get("pieces")
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrSchema, "pieces")
	}
	raw, ok := pieces.(bencode.String)
	if !ok {
		return fmt.Errorf("%w: pieces is %s, want string", ErrSchema, kindOf(pieces))
	}
	if len(raw)%HashSize != 0 {
		return fmt.Errorf("%w: pieces is %d bytes, not a multiple of %d", ErrSchema, len(raw), HashSize)
	}
	r.Pieces = EncodePieces(raw)

	// Only an integer 1 marks a private torrent.
	if private, ok := info.Get("private"); ok {
		n, isInt := private.(bencode.Int)
		r.Private = isInt && n == 1
	}

	if r.Name, err = requiredText(info, "name"); err != nil {
		return err
	}

	files, err := fileList(info)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		r.Files = files
		return nil
	}

	length, err := requiredUint(info, "length")
	if err != nil {
		return err
	}
	r.Length = &length
	r.MD5Sum, _, err = optionalText(info, "md5sum")
	return err
}

func fileList(info bencode.Dict) ([]File, error) {
	v, ok := info.Get("files")
	if !ok {
		return nil, nil
	}
	list, ok := v.(bencode.List)
	if !ok {
		return nil, fmt.Errorf("%w: files is %s, want list", ErrSchema, kindOf(v))
	}

	files := make([]File, 0, len(list))
	for i, item := range list {
		d, ok := item.(bencode.Dict)
		if !ok {
			return nil, fmt.Errorf("%w: files[%d] is %s, want dictionary", ErrSchema, i, kindOf(item))
		}
		f, err := readFile(d)
		if err != nil {
			return nil, fmt.Errorf("files[%d]: %w", i, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(d bencode.Dict) (File, error) {
	var f File
	var err error
	if f.Length, err = requiredUint(d, "length"); err != nil {
		return f, err
	}
	if f.MD5Sum, _, err = optionalText(d, "md5sum"); err != nil {
		return f, err
	}

	v, ok := d.Get("path")
	if !ok {
		return f, fmt.Errorf("%w: missing %q", ErrSchema, "path")
	}
	f.Path, err = textList(v, "path")
	if err != nil {
		return f, err
	}
	if len(f.Path) == 0 {
		return f, fmt.Errorf("%w: path is empty", ErrSchema)
	}
	return f, nil
}

func announceList(root bencode.Dict) ([][]string, error) {
	v, ok := root.Get("announce-list")
	if !ok {
		return nil, nil
	}
	tiers, ok := v.(bencode.List)
	if !ok {
		return nil, fmt.Errorf("%w: announce-list is %s, want list", ErrSchema, kindOf(v))
	}
	// empty tiers carry no trackers and are dropped
	var result [][]string
	for i, tier := range tiers {
		urls, err := textList(tier, fmt.Sprintf("announce-list[%d]", i))
		if err != nil {
			return nil, err
		}
		if len(urls) > 0 {
			result = append(result, urls)
		}
	}
	return result, nil
}

// ToValue rebuilds the metafile tree, leaving out empty optional fields.
func ToValue(r Record) (bencode.Dict, error) {
	info, err := r.infoValue()
	if err != nil {
		return bencode.Dict{}, err
	}

	entries := []bencode.Entry{
		{Key: "announce", Value: bencode.String(r.Announce)},
		{Key: "info", Value: info},
	}
	var tiers bencode.List
	for _, tier := range r.AnnounceList {
		if len(tier) > 0 {
			tiers = append(tiers, stringList(tier))
		}
	}
	if len(tiers) > 0 {
		entries = append(entries, bencode.Entry{Key: "announce-list", Value: tiers})
	}
	if r.CreationDate != nil {
		date, err := toInt(*r.CreationDate, "creation date")
		if err != nil {
			return bencode.Dict{}, err
		}
		entries = append(entries, bencode.Entry{Key: "creation date", Value: date})
	}
	entries = appendText(entries, "comment", r.Comment)
	entries = appendText(entries, "created by", r.CreatedBy)
	entries = appendText(entries, "encoding", r.Encoding)
	return bencode.NewDict(entries...), nil
}

func (r Record) infoValue() (bencode.Dict, error) {
	if err := r.checkLayout(); err != nil {
		return bencode.Dict{}, err
	}
	raw, err := DecodePieces(r.Pieces)
	if err != nil {
		return bencode.Dict{}, err
	}
	if len(raw)%HashSize != 0 {
		return bencode.Dict{}, fmt.Errorf("%w: pieces is %d bytes, not a multiple of %d", ErrSchema, len(raw), HashSize)
	}
	pieceLength, err := toInt(r.PieceLength, "piece length")
	if err != nil {
		return bencode.Dict{}, err
	}

	entries := []bencode.Entry{
		{Key: "name", Value: bencode.String(r.Name)},
		{Key: "piece length", Value: pieceLength},
		{Key: "pieces", Value: bencode.String(raw)},
	}
	if r.Private {
		entries = append(entries, bencode.Entry{Key: "private", Value: bencode.Int(1)})
	}

	if r.IsMultiFile() {
		files := make(bencode.List, 0, len(r.Files))
		for i, f := range r.Files {
			length, err := toInt(f.Length, fmt.Sprintf("files[%d].length", i))
			if err != nil {
				return bencode.Dict{}, err
			}
			fileEntries := []bencode.Entry{
				{Key: "length", Value: length},
				{Key: "path", Value: stringList(f.Path)},
			}
			fileEntries = appendText(fileEntries, "md5sum", f.MD5Sum)
			files = append(files, bencode.NewDict(fileEntries...))
		}
		entries = append(entries, bencode.Entry{Key: "files", Value: files})
		return bencode.NewDict(entries...), nil
	}

	length, err := toInt(*r.Length, "length")
	if err != nil {
		return bencode.Dict{}, err
	}
	entries = append(entries, bencode.Entry{Key: "length", Value: length})
	entries = appendText(entries, "md5sum", r.MD5Sum)
	return bencode.NewDict(entries...), nil
}

func appendText(entries []bencode.Entry, key, value string) []bencode.Entry {
	if value == "" {
		return entries
	}
	return append(entries, bencode.Entry{Key: key, Value: bencode.String(value)})
}

func stringList(values []string) bencode.List {
	list := make(bencode.List, 0, len(values))
	for _, s := range values {
		list = append(list, bencode.String(s))
	}
	return list
}

func toInt(n uint64, field string) (bencode.Int, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s %d out of range", ErrSchema, field, n)
	}
	return bencode.Int(n), nil
}

func requiredText(d bencode.Dict, key string) (string, error) {
	s, ok, err := optionalText(d, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrSchema, key)
	}
	return s, nil
}

func optionalText(d bencode.Dict, key string) (string, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return "", false, nil
	}
	s, err := text(v, key)
	return s, true, err
}

func text(v bencode.Value, field string) (string, error) {
	s, ok := v.(bencode.String)
	if !ok {
		return "", fmt.Errorf("%w: %s is %s, want string", ErrSchema, field, kindOf(v))
	}
	if !utf8.Valid(s) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrEncoding, field)
	}
	return string(s), nil
}

func textList(v bencode.Value, field string) ([]string, error) {
	list, ok := v.(bencode.List)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want list", ErrSchema, field, kindOf(v))
	}
	result := make([]string, 0, len(list))
	for i, item := range list {
		s, err := text(item, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func requiredUint(d bencode.Dict, key string) (uint64, error) {
	n, ok, err := optionalUint(d, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrSchema, key)
	}
	return n, nil
}

func optionalUint(d bencode.Dict, key string) (uint64, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(bencode.Int)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s is %s, want integer", ErrSchema, key, kindOf(v))
	}
	if n < 0 {
		return 0, false, fmt.Errorf("%w: %s is negative", ErrSchema, key)
	}
	return uint64(n), true, nil
}

func kindOf(v bencode.Value) string {
	switch v.(type) {
	case bencode.Int:
		return "integer"
	case bencode.String:
		return "string"
	case bencode.List:
		return "list"
	case bencode.Dict:
		return "dictionary"
	default:
		return "nothing"
	}
}
