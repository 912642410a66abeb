package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mundotango/citygroups/internal/citygroups"
	"github.com/mundotango/citygroups/internal/helpers"
	"github.com/mundotango/citygroups/internal/models"
	"github.com/mundotango/citygroups/internal/repositories"
)

type AssignEventRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
}

func ListCityGroups(c *gin.Context) {
	svc, ok := getCityGroups(c)
	if !ok {
		return
	}

	pageNum, limitNum, err := helpers.ParsePagination(c.DefaultQuery("page", "1"), c.DefaultQuery("limit", "10"), maxPageSize)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters.")
		return
	}

	groups, total, err := svc.ListCityGroups(c.Request.Context(), (pageNum-1)*limitNum, limitNum)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving groups.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groups":      groups,
		"total":       total,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (total + int64(limitNum) - 1) / int64(limitNum),
	})
}

func GetGroup(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id", "group")
	if !ok {
		return
	}
	svc, ok := getCityGroups(c)
	if !ok {
		return
	}

	group, err := svc.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func GetGroupBySlug(c *gin.Context) {
	svc, ok := getCityGroups(c)
	if !ok {
		return
	}

	group, err := svc.GetGroupBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func GetGroupEvents(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id", "group")
	if !ok {
		return
	}
	svc, ok := getCityGroups(c)
	if !ok {
		return
	}

	events, err := svc.GetEventsByGroup(c.Request.Context(), groupID)
	if err != nil {
		respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"group_id": groupID,
		"events":   events,
	})
}

// ResolveCityGroup reports the slug for a location and the group stored under
// it, if any. It never creates a group.
func ResolveCityGroup(c *gin.Context) {
	svc, ok := getCityGroups(c)
	if !ok {
		return
	}

	var in citygroups.LocationInput
	if err := c.ShouldBindQuery(&in); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid location.")
		return
	}

	loc, err := in.Resolve()
	if err != nil {
		helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Could not determine city from location.")
		return
	}
	slug := helpers.GenerateCityGroupSlug(loc.City, loc.Country)

	response := gin.H{
		"city":    loc.City,
		"country": loc.Country,
		"slug":    slug,
		"group":   nil,
	}

	group, err := svc.Resolver().FindGroupByLocation(c.Request.Context(), in)
	switch {
	case err == nil:
		response["group"] = group
	case !errors.Is(err, repositories.ErrNotFound):
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error resolving city group.")
		return
	}
	c.JSON(http.StatusOK, response)
}

func AssignEventToGroup(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id", "group")
	if !ok {
		return
	}

	var req AssignEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
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

	if _, ok := findOwnedEvent(c, gormDB, req.EventID, userID); !ok {
		return
	}

	assignment, err := svc.AssignEventToGroup(c.Request.Context(), req.EventID, groupID)
	if err != nil {
		respondGroupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Event assigned to group.",
		"assignment": assignment,
	})
}

func RemoveEventFromGroup(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id", "group")
	if !ok {
		return
	}
	eventID, ok := parseIDParam(c, "eventId", "event")
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

	if _, ok := findOwnedEvent(c, gormDB, eventID, userID); !ok {
		return
	}

	if err := svc.RemoveEventGroupAssignment(c.Request.Context(), eventID, groupID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Event is not assigned to this group.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to remove assignment.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Event removed from group.",
	})
}

// JoinCityGroup adds the caller to a city group, using the location in the
// body or, if the body is empty, the city on their profile.
func JoinCityGroup(c *gin.Context) {
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

	var in citygroups.LocationInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
			return
		}
	}
	if in.City == "" && in.Location == "" {
		var user models.User
		if err := gormDB.Where("id = ?", userID).First(&user).Error; err != nil {
			helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
			return
		}
		in = citygroups.LocationInput{City: user.City, Country: user.Country}
	}

	group, err := svc.AssignUserToCityGroup(c.Request.Context(), userID, in)
	if err != nil {
		respondGroupError(c, err)
		return
	}
	membership, err := svc.GetMembership(c.Request.Context(), userID, group.ID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving membership.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Joined city group.",
		"group":      group,
		"membership": membership,
	})
}

func respondGroupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, "Group not found.")
	case errors.Is(err, citygroups.ErrLocationUnresolved):
		helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Could not determine city from location.")
	default:
		helpers.RespondWithError(c, http.StatusInternalServerError, "City group operation failed.")
	}
}
