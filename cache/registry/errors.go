package registry

import "errors"

var (
	errOutOfRange = errors.New("read offset out of range")
	errShortRead  = errors.New("short read")
)
