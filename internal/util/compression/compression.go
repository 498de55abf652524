// Package compression abstracts the codec used for stored snapshot blobs.
package compression

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
