package validators

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webmHeader = []byte{0x1A, 0x45, 0xDF, 0xA3, 0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'}

// makeFileHeader builds a real multipart.FileHeader by writing a form
// and parsing it back
func makeFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="content"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["content"]
	require.Len(t, files, 1)
	return files[0]
}

func TestUploadFileValidator(t *testing.T) {
	viper.Set("uploads.max_size", int64(1<<20))

	fh := makeFileHeader(t, "talk.webm", "video/webm", webmHeader)
	assert.NoError(t, UploadFileValidator(fh))
}

func TestUploadFileValidatorNilHeader(t *testing.T) {
	assert.ErrorIs(t, UploadFileValidator(nil), ErrNoFile)
}

func TestUploadFileValidatorRejectsDeclaredType(t *testing.T) {
	viper.Set("uploads.max_size", int64(1<<20))

	fh := makeFileHeader(t, "notes.txt", "text/plain", []byte("plain text"))
	assert.ErrorIs(t, UploadFileValidator(fh), ErrNotVideoFile)
}

func TestUploadFileValidatorSniffsContent(t *testing.T) {
	viper.Set("uploads.max_size", int64(1<<20))

	// Spoofed header, non-video bytes
	fh := makeFileHeader(t, "fake.mp4", "video/mp4", []byte("definitely text"))
	assert.ErrorIs(t, UploadFileValidator(fh), ErrNotVideoFile)
}

func TestUploadFileValidatorTooLarge(t *testing.T) {
	viper.Set("uploads.max_size", int64(4))

	fh := makeFileHeader(t, "talk.webm", "video/webm", webmHeader)
	assert.ErrorIs(t, UploadFileValidator(fh), ErrFileTooLarge)
}
