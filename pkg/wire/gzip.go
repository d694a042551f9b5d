package wire

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// GzipLevel is the fixed compression level for trade blobs, both over the
// wire and on disk: level 1 ("fastest"), trading ratio for CPU since trade
// sets can run into the millions of records.
const GzipLevel = gzip.BestSpeed

// Gzip compresses data at GzipLevel.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, GzipLevel)
	if err != nil {
		return nil, fmt.Errorf("wire: new gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("wire: gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("wire: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Gunzip decompresses a gzip stream produced by Gzip.
func Gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("wire: new gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wire: gzip read: %w", err)
	}
	return out, nil
}
