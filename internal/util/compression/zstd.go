package compression

import "github.com/klauspost/compress/zstd"

// ZstdCompressor is the default codec for published snapshot blobs, both in
// the snapshots table and in the S3 archive mirror.
type ZstdCompressor struct{}

func (z ZstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

func (z ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
