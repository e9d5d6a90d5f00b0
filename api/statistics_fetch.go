package api

import (
	"net/http"

	"github.com/rigwild/soft-skills/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) StatisticsFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	stats, err := db.ReadStats(a.DB)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read statistics", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, stats)
}
