// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	// Error messages are part of the API contract, the frontend
	// displays them as-is
	ErrNoFile       = errors.New("You need to send a file.")
	ErrNotVideoFile = errors.New("You need to send a video file.")
	ErrFileTooLarge = errors.New("The file you sent is too large.")
)

// Accepted upload container formats
var allowedMimeTypes = []string{
	"video/3gpp",
	"video/mp2t",
	"video/mp4",
	"video/ogg",
	"video/quicktime",
	"video/webm",
	"video/x-flv",
	"video/x-ms-wmv",
	"video/x-msvideo",
}

func isAllowedMimeType(mime string) bool {
	mime = strings.ToLower(mime)
	for _, m := range allowedMimeTypes {
		if mime == m || strings.HasPrefix(mime, m+";") {
			return true
		}
	}
	return false
}

// UploadFileValidator checks a multipart upload is an accepted video
// file. The declared Content-Type header is checked first as it is
// cheap, then the actual content is sniffed as headers are trivial to
// spoof.
func UploadFileValidator(fh *multipart.FileHeader) error {
	if fh == nil {
		return ErrNoFile
	}

	if fh.Size > viper.GetInt64("uploads.max_size") {
		return ErrFileTooLarge
	}

	if !isAllowedMimeType(fh.Header.Get("Content-Type")) {
		return ErrNotVideoFile
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return err
	}

	if !isAllowedMimeType(mime.String()) {
		return ErrNotVideoFile
	}

	return nil
}
