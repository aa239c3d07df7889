package decoder

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestReadAll(t *testing.T) {
	var tests = []struct {
		name   string
		assert func(t *testing.T, actual []byte, err error)
		setup  func() (io.Reader, int64)
	}{
		{
			name: "read within limit",
			assert: func(t *testing.T, actual []byte, err error) {
				assert.Nil(t, err)
				assert.Equal(t, []byte{0x01, 0x02}, actual)
			},
			setup: func() (io.Reader, int64) {
				return bytes.NewBuffer([]byte{0x01, 0x02}), 2
			},
		},
		{
			name: "reading more bytes than the limit should fail",
			assert: func(t *testing.T, actual []byte, err error) {
				assert.ErrorIs(t, err, ErrTooLarge)
				assert.Nil(t, actual)
			},
			setup: func() (io.Reader, int64) {
				return bytes.NewBuffer([]byte{0x01, 0x02, 0x03}), 2
			},
		},
		{
			name: "no limit",
			assert: func(t *testing.T, actual []byte, err error) {
				assert.Nil(t, err)
				assert.Len(t, actual, 1<<16)
			},
			setup: func() (io.Reader, int64) {
				return bytes.NewReader(make([]byte, 1<<16)), 0
			},
		},
		{
			name: "reader errors are returned",
			assert: func(t *testing.T, actual []byte, err error) {
				assert.EqualError(t, err, "disk on fire")
			},
			setup: func() (io.Reader, int64) {
				return failingReader{}, 10
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, n := tt.setup()
			actual, err := ReadAll(r, n)
			tt.assert(t, actual, err)
		})
	}
}
