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

// AnalysisDelete removes an analysis, its stored artifacts and the
// upload record that produced it.
func (a *API) AnalysisDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	analysisID := c.Param("analysisId")

	analysis, err := db.FindAnalysis(a.DB, userID, analysisID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Analysis not found.",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := db.DeleteAnalysis(a.DB, userID, analysis.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Analysis not found.",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	removeAnalysisFiles(viper.GetString("uploads.dir"), analysis)
	if a.R2 != nil {
		a.R2.DeleteObjects(c.Request.Context(), analysisFileKeys(analysis)...)
	}

	zap.L().Info("An analysis was deleted",
		zap.String("userID", userID), zap.String("analysisID", analysis.ID))

	c.Status(http.StatusOK)
}

// removeAnalysisFiles deletes every on-disk artifact of an analysis.
// Missing files are fine, the record is already gone.
func removeAnalysisFiles(uploadsDir string, analysis *model.Analysis) {
	for _, name := range analysisFileKeys(analysis) {
		if name == "" {
			continue
		}
		os.Remove(filepath.Join(uploadsDir, name))
	}
}
