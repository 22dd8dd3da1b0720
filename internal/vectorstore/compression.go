package vectorstore

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pierrec/lz4/v4"
)

// compressAndChecksum applies the configured compression algorithm to raw
// and, if enabled, computes a SHA-256 checksum over the compressed bytes.
func compressAndChecksum(raw []byte, algo Compression, withChecksum bool) (compressed []byte, checksum string, err error) {
	switch algo {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, "", errSerialization("gzip compress failed", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", errSerialization("gzip close failed", err)
		}
		compressed = buf.Bytes()
	case CompressionLz4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if err := w.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
			return nil, "", errSerialization("lz4 configure failed", err)
		}
		if _, err := w.Write(raw); err != nil {
			return nil, "", errSerialization("lz4 compress failed", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", errSerialization("lz4 close failed", err)
		}
		compressed = buf.Bytes()
	default:
		compressed = raw
	}

	if withChecksum {
		sum := sha256.Sum256(compressed)
		checksum = hex.EncodeToString(sum[:])
	}
	return compressed, checksum, nil
}

// decompressAndVerify inverts compressAndChecksum, recomputing and checking
// the checksum (if one was recorded) before decompressing.
func decompressAndVerify(compressed []byte, algo Compression, expectedChecksum string) ([]byte, error) {
	if expectedChecksum != "" {
		sum := sha256.Sum256(compressed)
		if hex.EncodeToString(sum[:]) != expectedChecksum {
			return nil, errChecksumMismatch("checksum")
		}
	}

	switch algo {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, errSerialization("gzip reader failed", err)
		}
		defer func() { _ = r.Close() }()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errSerialization("gzip decompress failed", err)
		}
		return out, nil
	case CompressionLz4:
		r := lz4.NewReader(bytes.NewReader(compressed))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errSerialization("lz4 decompress failed", err)
		}
		return out, nil
	default:
		return compressed, nil
	}
}
