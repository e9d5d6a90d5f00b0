package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rigwild/soft-skills/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type analysisRenameRequest struct {
	Name string `json:"name"`
}

func (a *API) AnalysisRename(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	analysisID := c.Param("analysisId")

	var req analysisRenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "You need to provide a name.",
			"requestID": requestID,
		})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "You need to provide a name.",
			"requestID": requestID,
		})
		return
	}

	if err := db.RenameAnalysis(a.DB, userID, analysisID, req.Name); err != nil {
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

		zap.L().Error("Failed to rename analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysisId": analysisID,
		"name":       req.Name,
	})
}
