// Package validation checks uploaded photos by content, not extension.
package validation

import (
	"bytes"
	"io"
	"mime/multipart"
)

type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypeGIF  FileType = "gif"
)

// MaxUploadSize caps a single photo upload.
const MaxUploadSize = 15 << 20

var magicBytes = map[FileType][]byte{
	FileTypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FileTypeJPEG: {0xFF, 0xD8, 0xFF},
	FileTypeGIF:  {0x47, 0x49, 0x46, 0x38},
}

// DetectFileType sniffs the leading bytes and rewinds the reader.
func DetectFileType(file multipart.File) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(buffer[:n], signature) {
			return fileType, nil
		}
	}

	return "", ErrInvalidFileType
}

// ValidatePhoto rejects oversized uploads and anything that is not a
// real PNG, JPEG or GIF.
func ValidatePhoto(header *multipart.FileHeader, file multipart.File) error {
	if header.Size > MaxUploadSize {
		return ErrFileTooLarge
	}
	if _, err := DetectFileType(file); err != nil {
		return err
	}
	return nil
}
