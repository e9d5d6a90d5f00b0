package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rigwild/soft-skills/db"
	"github.com/rigwild/soft-skills/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadRetry re-runs the analysis for an upload that previously
// failed, without re-uploading the file. The upload goes back to
// pending before the pipeline is re-entered so a concurrent status
// poll never sees a stale error next to an in-flight retry.
func (a *API) UploadRetry(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	uploadID := c.Param("uploadId")

	upload, err := db.FindUpload(a.DB, userID, uploadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Upload not found.",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if upload.AnalysisID != nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "This file has already been analysed.",
			"requestID": requestID,
		})
		return
	}

	if upload.State != model.UploadStateError {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "You can only retry failed analyses.",
			"requestID": requestID,
		})
		return
	}

	// Fail fast before touching the worker pool if the file is gone,
	// an external command error would be much more cryptic
	dest := filepath.Join(viper.GetString("uploads.dir"), upload.VideoFile)
	if _, err := os.Stat(dest); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "The video file was not found on the server. You might want to remove this upload as the file was probably removed from the server.",
			"requestID": requestID,
		})
		return
	}

	// Atomic error -> pending flip. A concurrent retry of the same
	// upload loses this race and gets a conflict.
	reset, err := db.ResetUploadForRetry(a.DB, userID, uploadID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to reset upload for retry", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !reset {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "You can only retry failed analyses.",
			"requestID": requestID,
		})
		return
	}

	upload, err = db.FindUpload(a.DB, userID, uploadID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to reload upload after retry reset", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, upload)

	a.Runner.Start(userID, uploadID, dest)
}
