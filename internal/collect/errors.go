package collect

import "errors"

var (
	ErrCollect = errors.New("asset collection failed")
	ErrNoRule  = errors.New("no collection rule matches")
)
