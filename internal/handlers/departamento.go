package handlers

import (
	"net/http"
	"strings"

	"gestao-compras/internal/database"
	"gestao-compras/internal/models"

	"github.com/gin-gonic/gin"
)

func ListDepartamentos(c *gin.Context) {
	var departamentos []models.Departamento
	database.DB.Order("nome asc").Find(&departamentos)

	render(c, http.StatusOK, "departamentos_list.html", gin.H{
		"departamentos": departamentos,
		"IsAdmin":       currentRole(c) == models.RoleAdmin,
	})
}

func ShowNewDepartamento(c *gin.Context) {
	render(c, http.StatusOK, "departamentos_new.html", gin.H{"error": ""})
}

func CreateDepartamento(c *gin.Context) {
	nome := strings.TrimSpace(c.PostForm("nome"))
	sigla := strings.ToUpper(strings.TrimSpace(c.PostForm("sigla")))

	if len(nome) < 3 {
		render(c, http.StatusBadRequest, "departamentos_new.html", gin.H{
			"error": "Nome deve ter ao menos 3 caracteres",
		})
		return
	}

	if sigla != "" {
		var count int64
		database.DB.Model(&models.Departamento{}).
			Where("sigla = ?", sigla).
			Count(&count)

		if count > 0 {
			render(c, http.StatusBadRequest, "departamentos_new.html", gin.H{
				"error": "Já existe departamento com essa sigla",
			})
			return
		}
	}

	departamento := models.Departamento{Nome: nome, Sigla: sigla}
	if err := database.DB.Create(&departamento).Error; err != nil {
		render(c, http.StatusInternalServerError, "departamentos_new.html", gin.H{
			"error": "Erro ao salvar departamento",
		})
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditDepartamento, departamento.ID, "create", "Departamento criado: "+departamento.Nome)
	}

	c.Redirect(http.StatusFound, "/departamentos")
}
