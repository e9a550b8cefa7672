package build

import "errors"

var (
	ErrBuild               = errors.New("build failed")
	ErrValidate            = errors.New("script validation failed")
	ErrStageType           = errors.New("invalid stage type")
	ErrCommandFailed       = errors.New("command failed")
	ErrMacros              = errors.New("macro resources unavailable")
	ErrUnsupported         = errors.New("recipe does not support this platform")
	ErrFileSystemOperation = errors.New("file system operation failed")
)
