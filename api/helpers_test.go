package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/rigwild/soft-skills/model"
	"github.com/rigwild/soft-skills/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// Minimal EBML header of a webm container, enough for content sniffing
var webmHeader = []byte{0x1A, 0x45, 0xDF, 0xA3, 0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'}

func setupAPI(t *testing.T) *API {
	t.Helper()
	gin.SetMode(gin.TestMode)

	viper.Set("app.log_level", "error")
	viper.Set("jwt.secret", "test-secret")
	viper.Set("storage.driver", "sqlite")
	viper.Set("storage.dsn", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	viper.Set("uploads.dir", t.TempDir())
	viper.Set("uploads.max_size", int64(100<<20))
	viper.Set("archive.enabled", false)

	a, err := NewRouter()
	require.NoError(t, err)

	sqlDB, err := a.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return a
}

type fakeAnalyser struct {
	repairErr  error
	analyseErr error
}

func (f *fakeAnalyser) FFmpegRepair(ctx context.Context, filePath string) error {
	return f.repairErr
}

func (f *fakeAnalyser) Analyse(ctx context.Context, filePath string) (*service.AnalysisResult, error) {
	if f.analyseErr != nil {
		return nil, f.analyseErr
	}

	return &service.AnalysisResult{
		VideoFile:         filePath,
		AudioFile:         filePath + ".wav",
		Amplitude:         model.FloatPairs{{0, 0.1}, {0.01, 0.2}},
		Intensity:         model.FloatPairs{{0, 52.1}, {0.01, 53.4}},
		Pitch:             model.FloatPairs{{0, 0}, {0.01, 142.7}},
		AmplitudePlotFile: filePath + "_amplitude.png",
		IntensityPlotFile: filePath + "_intensity.png",
		PitchPlotFile:     filePath + "_pitch.png",
	}, nil
}

func doJSON(t *testing.T, a *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerAndLogin creates an account and returns its auth token
func registerAndLogin(t *testing.T, a *API, email string) string {
	t.Helper()

	w := doJSON(t, a, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "correct horse battery staple",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, a, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": "correct horse battery staple",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token, ok := decodeBody(t, w)["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

// uploadFile posts a multipart upload and returns the response
func uploadFile(t *testing.T, a *API, token, filename, contentType string, content []byte) *httptest.ResponseRecorder {
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

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}
