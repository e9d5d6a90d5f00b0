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

// AnalysisFileServe streams one stored artifact of an analysis: the
// original video, the extracted audio track or one of the plot images.
func (a *API) AnalysisFileServe(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	analysisID := c.Param("analysisId")
	fileKey := c.Param("file")

	if _, ok := model.AnalysisFileKeys[fileKey]; !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Provided file key is invalid.",
			"requestID": requestID,
		})
		return
	}

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

	name, _ := analysis.File(fileKey)
	path := filepath.Join(viper.GetString("uploads.dir"), name)

	if _, err := os.Stat(path); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Analysis file not found.",
			"requestID": requestID,
		})

		zap.L().Warn("Analysis file missing on disk",
			zap.String("analysisID", analysisID),
			zap.String("file", name),
			zap.String("requestID", requestID))
		return
	}

	c.File(path)
}
