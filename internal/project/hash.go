package project

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether the digest was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// Sum hashes raw bytes.
func Sum(data []byte) Digest { return sha256.Sum256(data) }

// Combine builds an aggregate hash: H(content || dep1 || dep2 ...).
// The order of deps must be deterministic.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Fingerprint hashes every setting that changes emitted text. Build
// settings such as jobs or the cache location are left out so they do
// not invalidate cached output.
func (c *Config) Fingerprint() Digest {
	h := sha256.New()
	for _, field := range []string{
		c.Target.Triple,
		c.Codegen.SymbolPrefix,
		c.Codegen.Generics,
		strconv.FormatBool(c.Codegen.EnumPayloads),
		strconv.FormatBool(c.Codegen.PartialDrops),
	} {
		_, _ = h.Write([]byte(field))
		_, _ = h.Write([]byte{0})
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
