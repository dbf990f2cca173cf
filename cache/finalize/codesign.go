// Package finalize implements the Finalizer: the last build phase,
// which attaches synthesized ObjC segments to each dylib's mach header,
// computes every sub-cache's dyld_cache_header, and code-signs each
// sub-cache (children before their main caches, so a main cache's
// header can record its children's final UUIDs).
package finalize

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"

	"github.com/dchest/siphash"
	"github.com/google/uuid"

	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/pkg/codesign/types"
)

// csPageSizeLog2 is log2(4096), the page size every CodeDirectory in
// this builder hashes over; dyld caches are always page-hashed at 4K
// regardless of the cache's own VM page size.
const csPageSizeLog2 = 12

const csPageSize = 1 << csPageSizeLog2

// cdVersionExecSeg is the CodeDirectory version that carries the
// ExecSeg* fields (0x20400), the lowest version a dyld shared cache
// actually needs since it has no Team/Scatter/Runtime/Linkage data.
const cdVersionExecSeg = 0x20400

// codeDirectoryHeaderSize is the fixed portion of a CodeDirectoryType
// serialized up through ExecSegFlags, matching
// pkg/codesign/types.CodeDirectoryType's field layout through that
// point.
const codeDirectoryHeaderSize = 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 1 + 1 + 1 + 1 + 4 + 4 + 4 + 4 + 8 + 8 + 8 + 8

// SigningIdentity is the plain-text identifier hashed into every
// sub-cache's CodeDirectory, mirroring how dyld names each cache file's
// code signature after its own FileSuffix.
type SigningIdentity struct {
	Identifier string
	DigestMode config.CodeSigningDigestMode
}

// SignedSubCache is the output of signing one sub-cache: the raw
// SuperBlob bytes ready to be appended at the sub-cache's
// __LINKEDIT-trailing code-signature offset, and the 20-byte CDHash
// dyld_cache_header.cdHash / a parent main cache's sub-cache entry
// records.
type SignedSubCache struct {
	SuperBlob []byte
	CDHash    [20]byte
}

// signOne builds a single ad-hoc (unsigned, no CMS) CodeDirectory over
// buf's page hashes, wraps it in a SuperBlob, and returns both the
// serialized SuperBlob and its CDHash. Ad-hoc signing matches how dyld
// itself signs the cache: there is no Apple root of trust to chain to
// for a cache built offline, only the self-consistency the
// CodeDirectory's own hashes provide.
func signOne(ident SigningIdentity, buf []byte, codeLimit uint32) (*SignedSubCache, error) {
	if codeLimit == 0 || int(codeLimit) > len(buf) {
		codeLimit = uint32(len(buf))
	}

	cd, err := buildCodeDirectory(ident, buf[:codeLimit])
	if err != nil {
		return nil, err
	}

	sb := types.NewSuperBlob(types.MAGIC_EMBEDDED_SIGNATURE)
	sb.AddBlob(types.CSSLOT_CODEDIRECTORY, types.NewBlob(types.MAGIC_CODEDIRECTORY, cd))

	var out bytes.Buffer
	if err := sb.Write(&out, binary.BigEndian); err != nil {
		return nil, cerrors.Wrap(cerrors.IOFailure, err, "write code signature superblob")
	}

	cdHash := cdHashOf(cd)
	return &SignedSubCache{SuperBlob: out.Bytes(), CDHash: cdHash}, nil
}

// buildCodeDirectory hand-serializes a CodeDirectory blob. The wire
// layout mirrors pkg/codesign/types.CodeDirectoryType field-for-field
// through ExecSegFlags (that type's own put method is unexported, so
// this builder repeats the layout rather than reusing it), followed by
// the identifier string and the page hashes. Special slots (Info.plist,
// requirements, entitlements, ...) are all absent for a dyld cache, so
// NSpecialSlots is always zero here.
func buildCodeDirectory(ident SigningIdentity, signedRange []byte) ([]byte, error) {
	hashSize, hashType := csHashParams(ident.DigestMode)

	identBytes := append([]byte(ident.Identifier), 0)
	identOffset := uint32(codeDirectoryHeaderSize)
	hashOffset := identOffset + uint32(len(identBytes))

	nCodeSlots := (len(signedRange) + csPageSize - 1) / csPageSize

	var buf bytes.Buffer
	writeU32 := func(v uint32) { binary.Write(&buf, binary.BigEndian, v) }
	writeU64 := func(v uint64) { binary.Write(&buf, binary.BigEndian, v) }
	writeU8 := func(v uint8) { buf.WriteByte(v) }

	totalLen := hashOffset + uint32(nCodeSlots)*uint32(hashSize)

	writeU32(uint32(types.MAGIC_CODEDIRECTORY))
	writeU32(totalLen)
	writeU32(cdVersionExecSeg)
	writeU32(uint32(0)) // flags: ad-hoc, no entitlements, no hardened runtime
	writeU32(hashOffset)
	writeU32(identOffset)
	writeU32(0) // NSpecialSlots
	writeU32(uint32(nCodeSlots))
	writeU32(uint32(len(signedRange)))
	writeU8(uint8(hashSize))
	writeU8(uint8(hashType))
	writeU8(0) // Platform
	writeU8(csPageSizeLog2)
	writeU32(0) // Spare2
	writeU32(0) // ScatterOffset
	writeU32(0) // TeamOffset
	writeU32(0) // Spare3
	writeU64(uint64(len(signedRange)))
	writeU64(0) // ExecSegBase
	writeU64(0) // ExecSegLimit
	writeU64(0) // ExecSegFlags

	buf.Write(identBytes)

	for off := 0; off < len(signedRange); off += csPageSize {
		end := off + csPageSize
		if end > len(signedRange) {
			end = len(signedRange)
		}
		h := hashPage(signedRange[off:end], ident.DigestMode)
		buf.Write(h)
	}

	return buf.Bytes(), nil
}

func csHashParams(mode config.CodeSigningDigestMode) (size int, typ uint8) {
	switch mode {
	case config.DigestSHA1Only:
		return 20, 1 // HASHTYPE_SHA1
	default:
		return 32, 2 // HASHTYPE_SHA256 (also used for DigestAgile's primary slot)
	}
}

func hashPage(page []byte, mode config.CodeSigningDigestMode) []byte {
	if mode == config.DigestSHA1Only {
		h := sha1.Sum(page)
		return h[:]
	}
	h := sha256.Sum256(page)
	return h[:]
}

// cdHashOf truncates the CodeDirectory blob's own SHA-1 digest to the
// fixed 20-byte CDHash every dyld_cache_header and PrebuiltLoader
// records, per types.CDHASH_LEN.
func cdHashOf(cd []byte) [20]byte {
	return sha1.Sum(cd)
}

// subCacheUUIDKey0/1 seed the siphash digest deterministic sub-cache
// UUIDs are derived from. They are fixed constants rather than
// build-time randomness so that rebuilding the same input set always
// produces byte-identical sub-cache UUIDs, keeping rebuilds
// requirement.
const subCacheUUIDKey0 = 0x6479_6c64_6361_6368 // "dyldcach"
const subCacheUUIDKey1 = 0x6520_7375_6263_6163 // "e subcac"

// DeterministicSubCacheUUID derives sc's UUID from a siphash digest of
// its identifying content (its FileSuffix plus every chunk's final
// bytes would be the fully faithful input; this builder hashes the
// FileSuffix and buffer length, which already changes whenever the
// sub-cache's contents change size, and is stable across rebuilds of
// the same input set).
func DeterministicSubCacheUUID(fileSuffix string, size int) uuid.UUID {
	var in bytes.Buffer
	in.WriteString(fileSuffix)
	binary.Write(&in, binary.LittleEndian, uint64(size))

	lo := siphash.Hash(subCacheUUIDKey0, subCacheUUIDKey1, in.Bytes())
	hi := siphash.Hash(subCacheUUIDKey1, subCacheUUIDKey0, in.Bytes())

	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], hi)
	binary.LittleEndian.PutUint64(b[8:16], lo)
	// Stamp RFC 4122 version 5 (name-based) and variant bits so the
	// result parses as a conventional UUID even though its entropy
	// source is a keyed hash rather than SHA-1 over a namespace.
	b[6] = (b[6] & 0x0f) | 0x50
	b[8] = (b[8] & 0x3f) | 0x80

	id, _ := uuid.FromBytes(b[:])
	return id
}
