package dylibpass

import "errors"

var (
	errOutOfRange = errors.New("dylibpass: read past end of buffer")
	errShortRead  = errors.New("dylibpass: short read")
)
