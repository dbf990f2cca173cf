package visit

import "errors"

var (
	errOutOfRange = errors.New("visit: read past end of buffer")
	errShortRead  = errors.New("visit: short read")
)
