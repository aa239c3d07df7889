package bencode

import (
	"fmt"
	"io"
	"strconv"
)

// Encode returns the canonical encoding of v: dictionary keys are written
// in ascending byte order whatever order they were inserted in.
func Encode(v Value) ([]byte, error) {
	return AppendEncode(nil, v)
}

func AppendEncode(dst []byte, v Value) ([]byte, error) {
	switch v := v.(type) {
	case Int:
		dst = append(dst, 'i')
		dst = strconv.AppendInt(dst, int64(v), 10)
		dst = append(dst, 'e')
	case String:
		dst = appendString(dst, v)
	case List:
		dst = append(dst, 'l')
		for _, item := range v {
			var err error
			dst, err = AppendEncode(dst, item)
			if err != nil {
				return nil, err
			}
		}
		dst = append(dst, 'e')
	case Dict:
		dst = append(dst, 'd')
		for _, e := range v.Sorted() {
			dst = appendString(dst, []byte(e.Key))
			var err error
			dst, err = AppendEncode(dst, e.Value)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", e.Key, err)
			}
		}
		dst = append(dst, 'e')
	case nil:
		return nil, ErrInvalidValue
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidValue, v)
	}
	return dst, nil
}

func appendString(dst []byte, s []byte) []byte {
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, ':')
	return append(dst, s...)
}

type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(v Value) error {
	b, err := Encode(v)
	if err != nil {
		return err
	}
	_, err = e.w.Write(b)
	return err
}
