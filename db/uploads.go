package db

import (
	"errors"
	"time"

	"github.com/rigwild/soft-skills/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrUploadVanished is returned when a state transition matched no
// row. The upload record disappeared between its creation and the
// completion of its background analysis, which is an internal
// consistency problem rather than a user mistake.
var ErrUploadVanished = errors.New("upload record no longer exists")

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CreatePendingUpload appends a new upload in state pending to a
// user's uploads list
func CreatePendingUpload(d *gorm.DB, userID, videoFile string) (*model.Upload, error) {
	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	upload := &model.Upload{
		ID:                     id,
		UserID:                 userID,
		VideoFile:              videoFile,
		State:                  model.UploadStatePending,
		UploadTimestamp:        now,
		LastStateEditTimestamp: now,
	}

	if err := d.Create(upload).Error; err != nil {
		return nil, err
	}

	zap.L().Info("Added an upload",
		zap.String("userID", userID),
		zap.String("uploadID", id),
		zap.String("videoFile", videoFile))

	return upload, nil
}

// FindUpload loads an upload scoped by its owner
func FindUpload(d *gorm.DB, userID, uploadID string) (*model.Upload, error) {
	var upload model.Upload
	err := d.
		Where("id = ? AND user_id = ?", uploadID, userID).
		First(&upload).
		Error
	if err != nil {
		return nil, err
	}

	return &upload, nil
}

// ListUploads returns all of a user's uploads, most recent first.
// The ordering is part of the API contract.
func ListUploads(d *gorm.DB, userID string) ([]model.Upload, error) {
	uploads := []model.Upload{}
	err := d.
		Where("user_id = ?", userID).
		Order("upload_timestamp DESC").
		Find(&uploads).
		Error
	if err != nil {
		return nil, err
	}

	return uploads, nil
}

// SetUploadState transitions an upload to finished or error. The
// update is a single atomic statement scoped by both userID and
// uploadID so a finalize call can never leak into another user's
// uploads, and always stamps lastStateEditTimestamp.
func SetUploadState(d *gorm.DB, userID, uploadID, newState string, analysisID, errorMessage *string) error {
	res := d.
		Model(model.Upload{}).
		Where("id = ? AND user_id = ?", uploadID, userID).
		Updates(map[string]any{
			"state":                     newState,
			"analysis_id":               analysisID,
			"error_message":             errorMessage,
			"last_state_edit_timestamp": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrUploadVanished
	}

	zap.L().Info("Edited an upload state",
		zap.String("userID", userID),
		zap.String("uploadID", uploadID),
		zap.String("newState", newState))

	return nil
}

// ResetUploadForRetry atomically flips an errored upload back to
// pending, clearing its error message. The state and analysis_id
// guards serialize concurrent retries of the same upload: only one
// caller can win, any other matches no row.
func ResetUploadForRetry(d *gorm.DB, userID, uploadID string) (bool, error) {
	res := d.
		Model(model.Upload{}).
		Where("id = ? AND user_id = ? AND state = ? AND analysis_id IS NULL",
			uploadID, userID, model.UploadStateError).
		Updates(map[string]any{
			"state":                     model.UploadStatePending,
			"error_message":             nil,
			"last_state_edit_timestamp": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// DeleteUpload removes an upload record scoped by its owner
func DeleteUpload(d *gorm.DB, userID, uploadID string) error {
	res := d.
		Where("id = ? AND user_id = ?", uploadID, userID).
		Delete(&model.Upload{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
