// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the payload size below which compression is
// skipped: small JSON change lists compress poorly and the row
// overhead dominates anyway.
const compressThreshold = 512

// The encoder and decoder are reused across calls; both are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("storage: zstd decoder initialization failed: " + err.Error())
	}
}

// compressPayload compresses payloads above the threshold, reporting
// whether compression was applied. Incompressible payloads are stored
// as-is.
func compressPayload(payload []byte) ([]byte, bool) {
	if len(payload) < compressThreshold {
		return payload, false
	}
	compressed := zstdEncoder.EncodeAll(payload, nil)
	if len(compressed) >= len(payload) {
		return payload, false
	}
	return compressed, true
}

func decompressPayload(compressed []byte) ([]byte, error) {
	payload, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return payload, nil
}
