package cache

import "crypto/sha1"

// approximateCDHash stands in for parsing an executable's embedded
// LC_CODE_SIGNATURE CodeDirectory blob and hashing that blob specifically
// (the real CDHash). It hashes the whole input buffer instead, which is
// enough to give distinct executables distinct, stable /cdhash/ trie
// keys without this builder having to verify or trust an input's
// existing signature.
func approximateCDHash(buf []byte) [20]byte {
	return sha1.Sum(buf)
}
