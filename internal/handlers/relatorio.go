package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gestao-compras/internal/database"
	"gestao-compras/internal/limites"
	"gestao-compras/internal/models"

	"github.com/gin-gonic/gin"
)

// linha do relatório mensal de consumo por contrato
type contratoUsoRow struct {
	Contrato models.Contrato
	UsoReq   limites.Uso
	UsoConf  limites.Uso
	UsoValor limites.UsoValor
}

// RelatorioContratos mostra, para um mês de referência, o consumo dos tetos
// de cada contrato ativo; inclusive quais estouraram o teto mensal.
func RelatorioContratos(c *gin.Context) {
	agora := time.Now()

	ano := agora.Year()
	if anoStr := c.Query("ano"); anoStr != "" {
		if v, err := strconv.Atoi(anoStr); err == nil && v > 2000 {
			ano = v
		}
	}
	mes := agora.Month()
	if mesStr := c.Query("mes"); mesStr != "" {
		if v, err := strconv.Atoi(mesStr); err == nil && v >= 1 && v <= 12 {
			mes = time.Month(v)
		}
	}

	var contratos []models.Contrato
	if err := database.DB.
		Preload("Fornecedor").
		Where("status = ?", models.ContratoAtivo).
		Order("numero asc").
		Find(&contratos).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao carregar contratos")
		return
	}

	rows := make([]contratoUsoRow, 0, len(contratos))
	excedidos := 0
	for i := range contratos {
		ct := contratos[i]

		usoReq, err := limites.UsoRequisicoes(database.DB, &ct)
		if err != nil {
			c.String(http.StatusInternalServerError, "Erro ao calcular consumo")
			return
		}
		usoConf, err := limites.UsoConferencias(database.DB, &ct)
		if err != nil {
			c.String(http.StatusInternalServerError, "Erro ao calcular consumo")
			return
		}
		usoValor, err := limites.UsoValorMensal(database.DB, &ct, ano, mes)
		if err != nil {
			c.String(http.StatusInternalServerError, "Erro ao calcular consumo")
			return
		}
		if usoValor.Excedido {
			excedidos++
		}

		rows = append(rows, contratoUsoRow{
			Contrato: ct,
			UsoReq:   usoReq,
			UsoConf:  usoConf,
			UsoValor: usoValor,
		})
	}

	render(c, http.StatusOK, "relatorio_contratos.html", gin.H{
		"rows":      rows,
		"ano":       ano,
		"mes":       int(mes),
		"excedidos": excedidos,
	})
}
