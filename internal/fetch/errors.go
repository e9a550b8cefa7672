package fetch

import "errors"

var (
	ErrFetch  = errors.New("fetch failed")
	ErrVerify = errors.New("content hash mismatch")
)
