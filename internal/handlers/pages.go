package handlers

import (
	"net/http"

	"gestao-compras/internal/database"
	"gestao-compras/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// IndexPage mostra o painel de entrada: pendências que exigem ação de
// alguém (requisições aguardando autorização, conferências abertas,
// integrações de patrimônio paradas) e o total de contratos ativos.
func IndexPage(c *gin.Context) {
	sess := sessions.Default(c)
	_, ok := sess.Get("user_id").(uint)

	if !ok {
		render(c, http.StatusOK, "index.html", gin.H{"isAuthed": false})
		return
	}

	var pendentes, abertas, paradas, ativos int64
	database.DB.Model(&models.Requisicao{}).
		Where("status = ?", models.RequisicaoPendente).Count(&pendentes)
	database.DB.Model(&models.Conferencia{}).
		Where("status = ?", models.ConferenciaEmAndamento).Count(&abertas)
	database.DB.Model(&models.IntegracaoPatrimonio{}).
		Where("status IN ?", []models.IntegracaoStatus{models.IntegracaoPendente, models.IntegracaoErro}).
		Count(&paradas)
	database.DB.Model(&models.Contrato{}).
		Where("status = ?", models.ContratoAtivo).Count(&ativos)

	render(c, http.StatusOK, "index.html", gin.H{
		"isAuthed":             true,
		"requisicoesPendentes": pendentes,
		"conferenciasAbertas":  abertas,
		"integracoesParadas":   paradas,
		"contratosAtivos":      ativos,
	})
}
