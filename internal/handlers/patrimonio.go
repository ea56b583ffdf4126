package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gestao-compras/internal/database"
	"gestao-compras/internal/models"

	"github.com/gin-gonic/gin"
)

//
// INTEGRAÇÕES COM O PATRIMÔNIO
//

func ListIntegracoes(c *gin.Context) {
	statusStr := c.Query("status")

	dbq := database.DB.
		Preload("RequisicaoItem").
		Order("created_at desc").
		Limit(200)

	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}

	var integracoes []models.IntegracaoPatrimonio
	if err := dbq.Find(&integracoes).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao carregar integrações")
		return
	}

	var pendentes int64
	database.DB.Model(&models.IntegracaoPatrimonio{}).
		Where("status IN ?", []models.IntegracaoStatus{models.IntegracaoPendente, models.IntegracaoErro}).
		Count(&pendentes)

	render(c, http.StatusOK, "patrimonio_list.html", gin.H{
		"integracoes":  integracoes,
		"pendentes":    pendentes,
		"FilterStatus": statusStr,
		"IsGestor":     isGestor(c),
	})
}

// ProcessarIntegracoesPendentes dispara um lote de reprocessamento sob
// demanda do operador.
func ProcessarIntegracoesPendentes(c *gin.Context) {
	if !isGestor(c) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	processadas, err := patrimonioSvc.ProcessarPendentes(database.DB, time.Now())
	if err != nil {
		c.String(http.StatusInternalServerError, "Erro ao processar integrações")
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditPatrimonio, 0, "processar",
			"Lote de integrações processado: "+strconv.Itoa(processadas)+" registro(s)")
	}

	c.Redirect(http.StatusFound, "/patrimonio")
}
