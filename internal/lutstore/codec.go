package lutstore

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"github.com/banshee-data/scanconvert/internal/scanconv/interp"
)

// encodeCorrespondence compresses c using gob encoding and gzip compression.
func encodeCorrespondence(c *interp.Correspondence) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(c); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeCorrespondence reverses encodeCorrespondence.
func decodeCorrespondence(blob []byte) (*interp.Correspondence, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty lut blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var c interp.Correspondence
	if err := gob.NewDecoder(gz).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode correspondence: %w", err)
	}
	if c.Canvas == nil {
		return nil, fmt.Errorf("decoded correspondence has no canvas")
	}
	return &c, nil
}
