package digest_engine

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// ReadWindowSize is the number of bytes read per step while streaming a file
// into a hash function.
const ReadWindowSize = 8192

var (
	// ErrUnsupportedAlgorithm is returned when a digest algorithm name is not registered.
	ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")
	// ErrInvalidChunkSize is returned when chunk digests are requested with a non-positive line count.
	ErrInvalidChunkSize = errors.New("chunk size must be a positive number of lines")
)

// Factory creates a fresh hash state.
type Factory func() hash.Hash

var (
	registry      = make(map[string]Factory)
	registryMutex sync.RWMutex
)

func init() {
	Register("md5", md5.New)
	Register("sha1", sha1.New)
	Register("sha224", sha256.New224)
	Register("sha256", sha256.New)
	Register("sha384", sha512.New384)
	Register("sha512", sha512.New)
	Register("sha3_256", sha3.New256)
	Register("sha3_512", sha3.New512)
	Register("blake2b", func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			panic("digest_engine: blake2b initialization failed: " + err.Error())
		}
		return h
	})
	Register("blake2s", func() hash.Hash {
		h, err := blake2s.New256(nil)
		if err != nil {
			panic("digest_engine: blake2s initialization failed: " + err.Error())
		}
		return h
	})
	Register("blake3", func() hash.Hash { return blake3.New() })
	// xxh3 is not a cryptographic hash. It only catches accidental change.
	Register("xxh3", func() hash.Hash { return xxh3.New() })
}

// NormalizeName lower-cases an algorithm name and drops dashes, so "SHA-256" and "sha256" match.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
}

// Register adds or replaces a digest algorithm under the given name.
func Register(name string, factory Factory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry[NormalizeName(name)] = factory
}

// IsSupported reports whether the named algorithm is registered.
func IsSupported(algorithm string) bool {
	_, err := New(algorithm)
	return err == nil
}

// Algorithms returns the registered algorithm names in sorted order.
func Algorithms() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns a fresh hash state for the named algorithm.
func New(algorithm string) (hash.Hash, error) {
	registryMutex.RLock()
	factory, ok := registry[NormalizeName(algorithm)]
	registryMutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return factory(), nil
}

// Digest streams r through the named algorithm in bounded windows and returns the hex digest.
func Digest(r io.Reader, algorithm string) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}

	buf := make([]byte, ReadWindowSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestBytes returns the hex digest of data.
func DigestBytes(data []byte, algorithm string) (string, error) {
	return Digest(bytes.NewReader(data), algorithm)
}

// DigestString returns the hex digest of the UTF-8 bytes of s.
func DigestString(s string, algorithm string) (string, error) {
	return Digest(strings.NewReader(s), algorithm)
}

// DigestFile opens path on fsys and streams its content through the named algorithm.
func DigestFile(fsys afero.Fs, path string, algorithm string) (string, error) {
	if !IsSupported(algorithm) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	file, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return Digest(file, algorithm)
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer really uses the bounded window.
type onlyReader struct {
	io.Reader
}
