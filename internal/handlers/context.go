package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mundotango/citygroups/internal/citygroups"
	"github.com/mundotango/citygroups/internal/helpers"
	"github.com/mundotango/citygroups/internal/middleware"
	"github.com/mundotango/citygroups/internal/models"
)

func getDB(c *gin.Context) (*gorm.DB, bool) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return nil, false
	}
	return db.(*gorm.DB), true
}

func getCityGroups(c *gin.Context) (*citygroups.Service, bool) {
	svc := middleware.GetCityGroups(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "City group service not configured.")
		return nil, false
	}
	return svc, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return uuid.Nil, false
	}
	return value.(uuid.UUID), true
}

func isAdmin(c *gin.Context) bool {
	return c.GetString("role") == models.RoleAdmin
}

func parseIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid "+label+" ID.")
		return uuid.Nil, false
	}
	return id, true
}
