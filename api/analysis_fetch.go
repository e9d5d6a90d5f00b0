package api

import (
	"errors"
	"net/http"

	"github.com/rigwild/soft-skills/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *API) AnalysisFetch(c *gin.Context) {
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

	c.JSON(http.StatusOK, analysis)
}
