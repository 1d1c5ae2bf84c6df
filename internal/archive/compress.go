package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// newCompressor wraps w with the named compression. level 0 selects the
// library default.
func newCompressor(w io.Writer, compression string, level int) (io.WriteCloser, error) {
	switch compression {
	case "", "gzip":
		if level == 0 {
			level = pgzip.DefaultCompression
		}
		gw, err := pgzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case "zstd":
		opts := []zstd.EOption{}
		if level != 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		zw, err := zstd.NewWriter(w, opts...)
		if err != nil {
			return nil, err
		}
		return zw, nil
	}
	return nil, fmt.Errorf("unsupported compression %q", compression)
}

// NewDecompressor is the reading counterpart used by verification and tests.
func NewDecompressor(r io.Reader, compression string) (io.ReadCloser, error) {
	switch compression {
	case "", "gzip":
		return pgzip.NewReader(r)
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}
	return nil, fmt.Errorf("unsupported compression %q", compression)
}
