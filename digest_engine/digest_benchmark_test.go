package digest_engine

import (
	"bytes"
	"fmt"
	"testing"
)

// BenchmarkDigest compares raw throughput of the registered algorithms on
// inputs of typical file sizes.
func BenchmarkDigest(b *testing.B) {
	sizes := []int{1024, 100 * 1024, 4 * 1024 * 1024}
	algorithms := []string{"md5", "sha256", "blake3", "xxh3"}

	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte('a' + (i % 26))
		}

		for _, algorithm := range algorithms {
			b.Run(fmt.Sprintf("%s_%dB", algorithm, size), func(b *testing.B) {
				b.SetBytes(int64(size))
				for i := 0; i < b.N; i++ {
					if _, err := Digest(bytes.NewReader(payload), algorithm); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkChunkDigests measures chunking a large normalized text.
func BenchmarkChunkDigests(b *testing.B) {
	var buf bytes.Buffer
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&buf, "line %d of the document body\n", i)
	}
	text := buf.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ChunkDigests(text, "sha256", 20); err != nil {
			b.Fatal(err)
		}
	}
}
