package macros

import "errors"

var (
	ErrMacroFile    = errors.New("macro file is malformed")
	ErrUnknownMacro = errors.New("unknown macro")
	ErrUnterminated = errors.New("unterminated macro reference")
	ErrDepth        = errors.New("macro expansion exceeded depth limit")
)
