package bencode

import (
	"strconv"
)

// DefaultMaxDepth bounds how deeply lists and dictionaries may nest.
const DefaultMaxDepth = 512

type Option func(*Decoder)

// Strict makes the decoder reject dictionaries with duplicate or
// out-of-order keys instead of keeping the first occurrence.
func Strict() Option {
	return func(d *Decoder) {
		d.strict = true
	}
}

// MaxDepth changes how deeply lists and dictionaries may nest. A value
// of zero or less restores DefaultMaxDepth.
func MaxDepth(n int) Option {
	return func(d *Decoder) {
		d.maxDepth = n
	}
}

// Decoder reads consecutive values from one buffer.
type Decoder struct {
	data     []byte
	pos      int
	strict   bool
	depth    int
	maxDepth int
}

func NewDecoder(data []byte, opts ...Option) *Decoder {
	d := &Decoder{data: data, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxDepth <= 0 {
		d.maxDepth = DefaultMaxDepth
	}
	return d
}

func (d *Decoder) Pos() int {
	return d.pos
}

// Rest returns the bytes not consumed yet.
func (d *Decoder) Rest() []byte {
	return d.data[d.pos:]
}

// Decode reads the next value. On failure the position is left where the
// offending token started.
func (d *Decoder) Decode() (Value, error) {
	start := d.pos
	v, err := d.decodeValue()
	if err != nil {
		d.pos = start
		return nil, err
	}
	return v, nil
}

// Decode reads one value from data and returns it with the unread bytes.
func Decode(data []byte, opts ...Option) (Value, []byte, error) {
	d := NewDecoder(data, opts...)
	v, err := d.Decode()
	if err != nil {
		return nil, data, err
	}
	return v, d.Rest(), nil
}

// DecodeComplete reads exactly one value and fails if anything follows it.
func DecodeComplete(data []byte, opts ...Option) (Value, error) {
	d := NewDecoder(data, opts...)
	v, err := d.Decode()
	if err != nil {
		return nil, err
	}
	if rest := d.Rest(); len(rest) > 0 {
		return nil, syntaxError(d.pos, ErrTrailingData, "%d unread bytes", len(rest))
	}
	return v, nil
}

// RawField returns the encoded bytes of the value stored under key in the
// dictionary at the start of data. With duplicate keys the first occurrence
// is returned, matching what Decode keeps.
func RawField(data []byte, key string, opts ...Option) ([]byte, bool, error) {
	d := NewDecoder(data, opts...)
	if len(data) == 0 {
		return nil, false, syntaxError(0, ErrTruncated, "expected a dictionary")
	}
	if data[0] != 'd' {
		return nil, false, syntaxError(0, ErrInvalidValue, "expected a dictionary, got %q", data[0])
	}
	if err := d.enter(); err != nil {
		return nil, false, err
	}
	d.pos++

	for d.pos < len(d.data) && d.data[d.pos] != 'e' {
		if !isDigit(d.data[d.pos]) {
			return nil, false, syntaxError(d.pos, ErrInvalidKey, "unexpected byte %q", d.data[d.pos])
		}
		k, err := d.decodeString()
		if err != nil {
			return nil, false, err
		}
		start := d.pos
		if _, err := d.decodeValue(); err != nil {
			return nil, false, err
		}
		if string(k.(String)) == key {
			return d.data[start:d.pos], true, nil
		}
	}
	if d.pos >= len(d.data) {
		return nil, false, syntaxError(0, ErrTruncated, "unterminated dictionary")
	}
	return nil, false, nil
}

func (d *Decoder) decodeValue() (Value, error) {
	if d.pos >= len(d.data) {
		return nil, syntaxError(d.pos, ErrTruncated, "expected a value")
	}

	b := d.data[d.pos]
	switch {
	case b == 'i':
		return d.decodeInt()
	case b == 'l':
		return d.decodeList()
	case b == 'd':
		return d.decodeDict()
	case isDigit(b):
		return d.decodeString()
	default:
		return nil, syntaxError(d.pos, ErrUnknownToken, "unexpected byte %q", b)
	}
}

func (d *Decoder) decodeInt() (Value, error) {
	start := d.pos
	end := start + 1
	for end < len(d.data) && d.data[end] != 'e' {
		end++
	}
	if end >= len(d.data) {
		return nil, syntaxError(start, ErrTruncated, "unterminated integer")
	}

	digits := d.data[start+1 : end]
	n, msg := parseInt(digits)
	if msg != "" {
		return nil, syntaxError(start, ErrMalformedInteger, "%q: %s", digits, msg)
	}

	d.pos = end + 1
	return Int(n), nil
}

// parseInt returns a non-empty message when digits is not a canonical
// base-10 int64.
func parseInt(digits []byte) (int64, string) {
	unsigned := digits
	if len(unsigned) > 0 && unsigned[0] == '-' {
		unsigned = unsigned[1:]
	}
	if len(unsigned) == 0 {
		return 0, "no digits"
	}
	for _, c := range unsigned {
		if !isDigit(c) {
			return 0, "non-digit character"
		}
	}
	if unsigned[0] == '0' {
		if len(unsigned) > 1 {
			return 0, "leading zero"
		}
		if len(unsigned) != len(digits) {
			return 0, "negative zero"
		}
	}

	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return 0, "out of range"
	}
	return n, ""
}

func (d *Decoder) decodeString() (Value, error) {
	start := d.pos
	colon := start
	for colon < len(d.data) && isDigit(d.data[colon]) {
		colon++
	}
	if colon >= len(d.data) {
		return nil, syntaxError(start, ErrTruncated, "unterminated string length")
	}
	if d.data[colon] != ':' {
		return nil, syntaxError(colon, ErrMalformedLength, "unexpected byte %q", d.data[colon])
	}

	digits := d.data[start:colon]
	if len(digits) > 1 && digits[0] == '0' {
		return nil, syntaxError(start, ErrMalformedLength, "%q: leading zero", digits)
	}
	length, err := strconv.Atoi(string(digits))
	if err != nil {
		return nil, syntaxError(start, ErrMalformedLength, "%q: out of range", digits)
	}

	begin := colon + 1
	if length > len(d.data)-begin {
		return nil, &SyntaxError{
			Offset: start,
			Kind:   ErrTruncated,
			Msg:    "declared length " + strconv.Itoa(length) + " exceeds remaining " + strconv.Itoa(len(d.data)-begin) + " bytes",
			also:   ErrMalformedLength,
		}
	}

	s := make(String, length)
	copy(s, d.data[begin:begin+length])
	d.pos = begin + length
	return s, nil
}

// enter records one more level of nesting for the container at d.pos.
func (d *Decoder) enter() error {
	if d.depth >= d.maxDepth {
		return syntaxError(d.pos, ErrTooDeep, "more than %d nested containers", d.maxDepth)
	}
	d.depth++
	return nil
}

func (d *Decoder) decodeList() (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	start := d.pos
	d.pos++

	list := List{}
	for {
		if d.pos >= len(d.data) {
			return nil, syntaxError(start, ErrTruncated, "unterminated list")
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			return list, nil
		}

		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
}

func (d *Decoder) decodeDict() (Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	start := d.pos
	d.pos++

	dict := Dict{}
	seen := make(map[string]struct{})
	prev := ""
	for {
		if d.pos >= len(d.data) {
			return nil, syntaxError(start, ErrTruncated, "unterminated dictionary")
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			return dict, nil
		}
		if !isDigit(d.data[d.pos]) {
			return nil, syntaxError(d.pos, ErrInvalidKey, "unexpected byte %q", d.data[d.pos])
		}

		keyOffset := d.pos
		k, err := d.decodeString()
		if err != nil {
			return nil, err
		}
		key := string(k.(String))

		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}

		_, dup := seen[key]
		if d.strict {
			if dup {
				return nil, syntaxError(keyOffset, ErrDuplicateKey, "%q", key)
			}
			if len(dict.entries) > 0 && key < prev {
				return nil, syntaxError(keyOffset, ErrUnsortedKeys, "%q after %q", key, prev)
			}
		}
		prev = key
		if dup {
			continue
		}
		seen[key] = struct{}{}
		dict.entries = append(dict.entries, Entry{Key: key, Value: v})
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
