package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mundotango/citygroups/internal/citygroups"
	"github.com/mundotango/citygroups/internal/helpers"
	"github.com/mundotango/citygroups/internal/models"
)

const maxPageSize = 100

func CreateEvent(c *gin.Context) {
	title := c.PostForm("title")
	description := c.PostForm("description")
	if title == "" || description == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing required fields.")
		return
	}

	startTime, err := time.Parse(time.RFC3339, c.PostForm("start_time"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid start time format.")
		return
	}
	endTime, err := time.Parse(time.RFC3339, c.PostForm("end_time"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid end time format.")
		return
	}
	if endTime.Before(startTime) {
		helpers.RespondWithError(c, http.StatusBadRequest, "End time must not be before start time.")
		return
	}

	var in citygroups.LocationInput
	if err := c.ShouldBind(&in); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid location fields.")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gormDB, ok := getDB(c)
	if !ok {
		return
	}
	svc, ok := getCityGroups(c)
	if !ok {
		return
	}

	event := models.Event{
		Title:       title,
		Description: description,
		StartTime:   startTime,
		EndTime:     endTime,
		Venue:       c.PostForm("venue"),
		Location:    in.Location,
		City:        in.City,
		Country:     in.Country,
		UserID:      userID,
	}

	bannerFile, err := c.FormFile("banner")
	if err == nil {
		bannerPath, err := helpers.UploadImage(c, bannerFile, "event_banners", helpers.DefaultImageUploadConfig)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		event.BannerPath = bannerPath
	}

	if err := gormDB.Create(&event).Error; err != nil {
		if delErr := helpers.DeleteFile(event.BannerPath); delErr != nil {
			zap.L().Warn("could not delete orphaned banner", zap.String("path", event.BannerPath), zap.Error(delErr))
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	result := svc.ProcessEventCityGroupAssignment(c.Request.Context(), event.ID, in, userID)

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Event created successfully.",
		"event_id":   event.ID,
		"city_group": result,
	})
}

func GetEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id", "event")
	if !ok {
		return
	}
	gormDB, ok := getDB(c)
	if !ok {
		return
	}

	var event models.Event
	if err := gormDB.Preload("User").Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	var groups []models.Group
	err := gormDB.
		Joins("JOIN event_group_assignments ON event_group_assignments.group_id = groups.id").
		Where("event_group_assignments.event_id = ?", eventID).
		Find(&groups).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event groups.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event":  event,
		"groups": groups,
	})
}

func ListEvents(c *gin.Context) {
	gormDB, ok := getDB(c)
	if !ok {
		return
	}

	pageNum, limitNum, err := helpers.ParsePagination(c.DefaultQuery("page", "1"), c.DefaultQuery("limit", "10"), maxPageSize)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters.")
		return
	}

	query := gormDB.Model(&models.Event{})
	if city := c.Query("city"); city != "" {
		query = query.Where("LOWER(city) = LOWER(?)", city)
	}
	if country := c.Query("country"); country != "" {
		query = query.Where("LOWER(country) = LOWER(?)", country)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	var events []models.Event
	offset := (pageNum - 1) * limitNum
	err = query.Offset(offset).Limit(limitNum).Order("start_time ASC").Find(&events).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

// AssignEventCityGroup re-runs automatic city group assignment using the
// location stored on the event.
func AssignEventCityGroup(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id", "event")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gormDB, ok := getDB(c)
	if !ok {
		return
	}
	svc, ok := getCityGroups(c)
	if !ok {
		return
	}

	event, ok := findOwnedEvent(c, gormDB, eventID, userID)
	if !ok {
		return
	}

	in := citygroups.LocationInput{Location: event.Location, City: event.City, Country: event.Country}
	result := svc.ProcessEventCityGroupAssignment(c.Request.Context(), event.ID, in, userID)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func DeleteEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id", "event")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gormDB, ok := getDB(c)
	if !ok {
		return
	}

	result := gormDB.Where("id = ? AND user_id = ?", eventID, userID).Delete(&models.Event{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete event.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to delete.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event deleted successfully.",
	})
}

// findOwnedEvent loads an event the caller may manage: its organizer, or
// any admin.
func findOwnedEvent(c *gin.Context, gormDB *gorm.DB, eventID, userID uuid.UUID) (*models.Event, bool) {
	query := gormDB.Where("id = ?", eventID)
	if !isAdmin(c) {
		query = query.Where("user_id = ?", userID)
	}

	var event models.Event
	if err := query.First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to update.")
			return nil, false
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return nil, false
	}
	return &event, true
}
