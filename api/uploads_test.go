package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/rigwild/soft-skills/model"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadWithoutFile(t *testing.T) {
	a := setupAPI(t)
	token := registerAndLogin(t, a, "u1@example.com")

	w := doJSON(t, a, http.MethodPost, "/api/uploads", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You need to send a file.", decodeBody(t, w)["error"])

	w = doJSON(t, a, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestUploadRejectsNonVideoFile(t *testing.T) {
	a := setupAPI(t)
	token := registerAndLogin(t, a, "u2@example.com")

	w := uploadFile(t, a, token, "notes.txt", "text/plain", []byte("not a video"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You need to send a video file.", decodeBody(t, w)["error"])

	// A spoofed Content-Type header must not get past content sniffing
	w = uploadFile(t, a, token, "notes.mp4", "video/mp4", []byte("still not a video"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You need to send a video file.", decodeBody(t, w)["error"])

	// No record is kept for a rejected upload
	w = doJSON(t, a, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestUploadAnalysisFlow(t *testing.T) {
	a := setupAPI(t)
	a.Runner.Worker = &fakeAnalyser{}
	token := registerAndLogin(t, a, "u3@example.com")

	w := uploadFile(t, a, token, "talk.webm", "video/webm", webmHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	uploadID, _ := body["id"].(string)
	videoFile, _ := body["videoFile"].(string)
	require.NotEmpty(t, uploadID)
	assert.Equal(t, model.UploadStatePending, body["state"])
	assert.Nil(t, body["errorMessage"])
	assert.Nil(t, body["analysisId"])
	assert.Regexp(t, `^[A-Za-z0-9]{8}_talk\.webm$`, videoFile)

	// The stored file carries the random prefix
	_, err := os.Stat(filepath.Join(viper.GetString("uploads.dir"), videoFile))
	require.NoError(t, err)

	a.Runner.Tasks.Wait(uploadID)

	w = doJSON(t, a, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var uploads []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploads))
	require.Len(t, uploads, 1)
	assert.Equal(t, model.UploadStateFinished, uploads[0]["state"])
	assert.Nil(t, uploads[0]["errorMessage"])

	analysisID, _ := uploads[0]["analysisId"].(string)
	require.NotEmpty(t, analysisID)

	w = doJSON(t, a, http.MethodGet, "/api/analysis/"+analysisID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	analysis := decodeBody(t, w)
	assert.Equal(t, videoFile, analysis["name"])
	assert.Equal(t, videoFile, analysis["videoFile"])
	assert.Equal(t, videoFile+".wav", analysis["audioFile"])
	assert.Equal(t, videoFile+"_amplitude.png", analysis["amplitudePlotFile"])
	assert.Equal(t, videoFile+"_intensity.png", analysis["intensityPlotFile"])
	assert.Equal(t, videoFile+"_pitch.png", analysis["pitchPlotFile"])
	assert.NotEmpty(t, analysis["amplitude"])
	assert.NotEmpty(t, analysis["intensity"])
	assert.NotEmpty(t, analysis["pitch"])
}

func TestUploadAnalysisFailureAndRetry(t *testing.T) {
	a := setupAPI(t)
	fake := &fakeAnalyser{analyseErr: errors.New("An error occurred when analysing the audio file.")}
	a.Runner.Worker = fake
	token := registerAndLogin(t, a, "u4@example.com")

	w := uploadFile(t, a, token, "talk.webm", "video/webm", webmHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	uploadID := decodeBody(t, w)["id"].(string)

	a.Runner.Tasks.Wait(uploadID)

	w = doJSON(t, a, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var uploads []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploads))
	require.Len(t, uploads, 1)
	assert.Equal(t, model.UploadStateError, uploads[0]["state"])
	assert.Equal(t, "An error occurred when analysing the audio file.", uploads[0]["errorMessage"])
	assert.Nil(t, uploads[0]["analysisId"])

	// The retry goes back to pending with a clean slate
	fake.analyseErr = nil
	w = doJSON(t, a, http.MethodPost, "/api/uploads/"+uploadID+"/retry", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, model.UploadStatePending, body["state"])
	assert.Nil(t, body["errorMessage"])

	a.Runner.Tasks.Wait(uploadID)

	w = doJSON(t, a, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploads))
	require.Len(t, uploads, 1)
	assert.Equal(t, model.UploadStateFinished, uploads[0]["state"])
	assert.NotEmpty(t, uploads[0]["analysisId"])
}

func TestUploadRetryGuards(t *testing.T) {
	a := setupAPI(t)
	a.Runner.Worker = &fakeAnalyser{}
	token := registerAndLogin(t, a, "u5@example.com")

	w := doJSON(t, a, http.MethodPost, "/api/uploads/missing/retry", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Upload not found.", decodeBody(t, w)["error"])

	w = uploadFile(t, a, token, "talk.webm", "video/webm", webmHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	uploadID := decodeBody(t, w)["id"].(string)

	a.Runner.Tasks.Wait(uploadID)

	// Finished uploads can't be retried
	w = doJSON(t, a, http.MethodPost, "/api/uploads/"+uploadID+"/retry", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "This file has already been analysed.", decodeBody(t, w)["error"])
}

func TestUploadRetryMissingFileOnDisk(t *testing.T) {
	a := setupAPI(t)
	a.Runner.Worker = &fakeAnalyser{analyseErr: errors.New("boom")}
	token := registerAndLogin(t, a, "u6@example.com")

	w := uploadFile(t, a, token, "talk.webm", "video/webm", webmHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	uploadID := body["id"].(string)
	videoFile := body["videoFile"].(string)

	a.Runner.Tasks.Wait(uploadID)

	require.NoError(t, os.Remove(filepath.Join(viper.GetString("uploads.dir"), videoFile)))

	w = doJSON(t, a, http.MethodPost, "/api/uploads/"+uploadID+"/retry", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t,
		"The video file was not found on the server. You might want to remove this upload as the file was probably removed from the server.",
		decodeBody(t, w)["error"])
}

func TestUploadDelete(t *testing.T) {
	a := setupAPI(t)
	a.Runner.Worker = &fakeAnalyser{repairErr: errors.New("An error occurred when extracting audio from the file.")}
	token := registerAndLogin(t, a, "u7@example.com")

	w := uploadFile(t, a, token, "talk.webm", "video/webm", webmHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	uploadID := body["id"].(string)
	videoFile := body["videoFile"].(string)

	a.Runner.Tasks.Wait(uploadID)

	w = doJSON(t, a, http.MethodDelete, "/api/uploads/"+uploadID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, a, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	_, err := os.Stat(filepath.Join(viper.GetString("uploads.dir"), videoFile))
	assert.True(t, os.IsNotExist(err))

	w = doJSON(t, a, http.MethodDelete, "/api/uploads/"+uploadID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadDeleteFinishedRemovesAnalysis(t *testing.T) {
	a := setupAPI(t)
	a.Runner.Worker = &fakeAnalyser{}
	token := registerAndLogin(t, a, "u8@example.com")

	w := uploadFile(t, a, token, "talk.webm", "video/webm", webmHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	uploadID := decodeBody(t, w)["id"].(string)

	a.Runner.Tasks.Wait(uploadID)

	w = doJSON(t, a, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var uploads []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploads))
	require.Len(t, uploads, 1)
	analysisID := uploads[0]["analysisId"].(string)

	w = doJSON(t, a, http.MethodDelete, "/api/uploads/"+uploadID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, a, http.MethodGet, "/api/analysis/"+analysisID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Analysis not found.", decodeBody(t, w)["error"])
}
