package signaling

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// compactPrefix tags the short paste form: msgpack, deflated, base64url.
// SDP text is highly repetitive so this roughly halves what users copy around.
const compactPrefix = "pd1:"

// maxCompactSize bounds the inflated payload.
const maxCompactSize = 256 * 1024

func encodeCompact(d Descriptor) (string, error) {
	packed, err := msgpack.Marshal(&d)
	if err != nil {
		return "", fmt.Errorf("pack descriptor: %w", err)
	}

	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(packed); err != nil {
		return "", fmt.Errorf("compress descriptor: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress descriptor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeCompact(s string) (Descriptor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Descriptor{}, fmt.Errorf("decode base64: %w", err)
	}

	zr := flate.NewReader(bytes.NewReader(raw))
	defer zr.Close()

	packed, err := io.ReadAll(io.LimitReader(zr, maxCompactSize+1))
	if err != nil {
		return Descriptor{}, fmt.Errorf("inflate: %w", err)
	}
	if len(packed) > maxCompactSize {
		return Descriptor{}, fmt.Errorf("inflated descriptor exceeds %d bytes", maxCompactSize)
	}

	var d Descriptor
	if err := msgpack.Unmarshal(packed, &d); err != nil {
		return Descriptor{}, fmt.Errorf("unpack: %w", err)
	}
	return d, nil
}
