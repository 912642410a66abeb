package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/mundotango/citygroups/internal/citygroups"
	"github.com/mundotango/citygroups/internal/compliance"
)

const (
	cityGroupsKey = "city_groups"
	auditorKey    = "compliance_auditor"
)

func CityGroupsMiddleware(svc *citygroups.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(cityGroupsKey, svc)
		c.Next()
	}
}

func GetCityGroups(c *gin.Context) *citygroups.Service {
	svc, exists := c.Get(cityGroupsKey)
	if !exists {
		return nil
	}
	return svc.(*citygroups.Service)
}

func ComplianceMiddleware(auditor *compliance.Auditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auditorKey, auditor)
		c.Next()
	}
}

func GetAuditor(c *gin.Context) *compliance.Auditor {
	auditor, exists := c.Get(auditorKey)
	if !exists {
		return nil
	}
	return auditor.(*compliance.Auditor)
}
