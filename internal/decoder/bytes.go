package decoder

import (
	"errors"
	"fmt"
	"io"
)

var ErrTooLarge = errors.New("metafile too large")

// ReadAll reads r to the end, failing once more than limit bytes arrive.
// A limit of zero or less reads without bound.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}

	return data, nil
}
