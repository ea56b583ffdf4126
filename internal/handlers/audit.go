package handlers

import (
	"net/http"

	"gestao-compras/internal/database"
	"gestao-compras/internal/models"

	"github.com/gin-gonic/gin"
)

func ListAuditLogs(c *gin.Context) {
	role := currentRole(c)

	if role != models.RoleAdmin && role != models.RoleVisualizador {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	var logs []models.AuditLog
	database.DB.
		Preload("User").
		Order("created_at desc").
		Limit(200).
		Find(&logs)

	render(c, http.StatusOK, "audit_list.html", gin.H{
		"logs":    logs,
		"role":    string(role),
		"IsAdmin": role == models.RoleAdmin,
	})
}
