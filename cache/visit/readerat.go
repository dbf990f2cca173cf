package visit

// readerAt adapts a byte slice to io.ReaderAt, the interface macho.NewFile
// requires, mirroring cache/registry's own adapter (kept package-local
// since io.ReaderAt over a byte slice is a two-line wrapper not worth
// sharing across package boundaries).
type readerAt struct{ b []byte }

func newReaderAt(b []byte) *readerAt { return &readerAt{b} }

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.b)) {
		return 0, errOutOfRange
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, errShortRead
	}
	return n, nil
}
