package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how an input file is compressed.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZ
	CompressionZSTD
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionGZ:
		return "gzip"
	case CompressionZSTD:
		return "zstd"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

// DetectCompression guesses compression from the file extension.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGZ
	case ".zst", ".zstd":
		return CompressionZSTD
	case ".xz":
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// NewDecompressReader wraps r according to c. The returned close function
// releases decoder resources but not r.
func NewDecompressReader(r io.Reader, c Compression) (io.Reader, func() error, error) {
	switch c {
	case CompressionNone:
		return r, func() error { return nil }, nil

	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, gz.Close, nil

	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return dec, func() error {
			dec.Close()
			return nil
		}, nil

	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xr, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression: %v", c)
	}
}

// openInput opens path, or stdin for "-", and decompresses it.
func openInput(path string, c Compression) (io.Reader, func() error, error) {
	if path == "-" {
		return NewDecompressReader(os.Stdin, c)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r, closeDecoder, err := NewDecompressReader(f, c)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, func() error {
		derr := closeDecoder()
		if err := f.Close(); err != nil {
			return err
		}
		return derr
	}, nil
}
