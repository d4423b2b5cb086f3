package validation

import "errors"

var (
	ErrInvalidFileType = errors.New("file is not a supported image type")
	ErrFileTooLarge    = errors.New("file size exceeds 15MB limit")
)
