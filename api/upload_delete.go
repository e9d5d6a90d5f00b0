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

// UploadDelete removes an upload record and its stored file. If the
// upload already produced an analysis, that analysis goes with it so
// the two collections stay mutually consistent. Deleting an upload
// whose analysis is still in flight is allowed: the pipeline's
// finalize step tolerates the vanished record.
func (a *API) UploadDelete(c *gin.Context) {
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

	uploadsDir := viper.GetString("uploads.dir")

	if upload.AnalysisID != nil {
		// Delegate so the analysis and its artifacts go away too
		analysis, err := db.FindAnalysis(a.DB, userID, *upload.AnalysisID)
		if err == nil {
			if err := db.DeleteAnalysis(a.DB, userID, analysis.ID); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":     "Internal server error",
					"requestID": requestID,
				})

				zap.L().Error("Failed to delete analysis of upload", zap.Error(err), zap.String("requestID", requestID))
				return
			}

			removeAnalysisFiles(uploadsDir, analysis)
			if a.R2 != nil {
				a.R2.DeleteObjects(c.Request.Context(), analysisFileKeys(analysis)...)
			}

			c.Status(http.StatusOK)
			return
		}
	}

	if err := db.DeleteUpload(a.DB, userID, uploadID); err != nil {
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

		zap.L().Error("Failed to delete upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	os.Remove(filepath.Join(uploadsDir, upload.VideoFile))

	zap.L().Info("An upload was deleted",
		zap.String("userID", userID), zap.String("uploadID", uploadID))

	c.Status(http.StatusOK)
}

func analysisFileKeys(analysis *model.Analysis) []string {
	return []string{
		analysis.VideoFile,
		analysis.AudioFile,
		analysis.AmplitudePlotFile,
		analysis.IntensityPlotFile,
		analysis.PitchPlotFile,
	}
}
