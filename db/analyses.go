package db

import (
	"time"

	"github.com/rigwild/soft-skills/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateAnalysis persists a finished analysis and marks the
// originating upload as finished, pointing at the new record. Both
// writes run in one transaction so a crash in between can never leave
// a finished analysis with a still-pending upload.
func CreateAnalysis(d *gorm.DB, analysis *model.Analysis, uploadID string) error {
	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return err
	}

	analysis.ID = id
	analysis.AnalysisTimestamp = time.Now()

	err = d.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(analysis).Error; err != nil {
			return err
		}

		return SetUploadState(tx, analysis.UserID, uploadID, model.UploadStateFinished, &analysis.ID, nil)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Added an analysis",
		zap.String("userID", analysis.UserID),
		zap.String("analysisID", analysis.ID),
		zap.String("videoFile", analysis.VideoFile))

	return nil
}

// FindAnalysis loads an analysis scoped by its owner
func FindAnalysis(d *gorm.DB, userID, analysisID string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := d.
		Where("id = ? AND user_id = ?", analysisID, userID).
		First(&analysis).
		Error
	if err != nil {
		return nil, err
	}

	return &analysis, nil
}

// RenameAnalysis changes the display name of an analysis, the only
// field that may change after creation
func RenameAnalysis(d *gorm.DB, userID, analysisID, name string) error {
	res := d.
		Model(model.Analysis{}).
		Where("id = ? AND user_id = ?", analysisID, userID).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// DeleteAnalysis removes an analysis together with the upload that
// produced it, keeping both collections mutually consistent
func DeleteAnalysis(d *gorm.DB, userID, analysisID string) error {
	return d.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("id = ? AND user_id = ?", analysisID, userID).
			Delete(&model.Analysis{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.
			Where("user_id = ? AND analysis_id = ?", userID, analysisID).
			Delete(&model.Upload{}).
			Error
	})
}
