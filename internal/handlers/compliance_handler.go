package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mundotango/citygroups/internal/compliance"
	"github.com/mundotango/citygroups/internal/helpers"
	"github.com/mundotango/citygroups/internal/middleware"
)

func getAuditor(c *gin.Context) (*compliance.Auditor, bool) {
	auditor := middleware.GetAuditor(c)
	if auditor == nil {
		helpers.RespondWithError(c, http.StatusServiceUnavailable, "Compliance auditing is disabled.")
		return nil, false
	}
	return auditor, true
}

func GetComplianceStatus(c *gin.Context) {
	auditor, ok := getAuditor(c)
	if !ok {
		return
	}

	status, found := auditor.CurrentStatus()
	if !found {
		helpers.RespondWithError(c, http.StatusNotFound, "No compliance audit has run yet.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"is_running": auditor.IsRunning(),
	})
}

func GetComplianceHistory(c *gin.Context) {
	auditor, ok := getAuditor(c)
	if !ok {
		return
	}

	limit, err := helpers.StringToInt(c.DefaultQuery("limit", "10"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	history, err := auditor.History(c.Request.Context(), limit)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving audit history.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

func RefreshCompliance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	auditor, ok := getAuditor(c)
	if !ok {
		return
	}

	entry, err := auditor.Refresh(c.Request.Context(), userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Audit ran but could not be stored.",
			"audit":   entry,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Compliance audit completed.",
		"audit":   entry,
	})
}
