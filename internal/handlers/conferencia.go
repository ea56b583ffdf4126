package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gestao-compras/internal/conferencias"
	"gestao-compras/internal/database"
	"gestao-compras/internal/limites"
	"gestao-compras/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

//
// LISTA DE CONFERÊNCIAS
//

func ListConferencias(c *gin.Context) {
	fornecedorIDStr := c.Query("fornecedor_id")
	statusStr := c.Query("status")

	dbq := database.DB.Preload("Fornecedor").Order("periodo_inicio desc")

	if fornecedorIDStr != "" {
		if fid, err := strconv.Atoi(fornecedorIDStr); err == nil && fid > 0 {
			dbq = dbq.Where("fornecedor_id = ?", fid)
		}
	}
	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}

	var confs []models.Conferencia
	if err := dbq.Find(&confs).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao carregar conferências")
		return
	}

	var fornecedores []models.Fornecedor
	database.DB.Order("razao_social asc").Find(&fornecedores)

	render(c, http.StatusOK, "conferencias_list.html", gin.H{
		"conferencias":     confs,
		"fornecedores":     fornecedores,
		"FilterFornecedor": fornecedorIDStr,
		"FilterStatus":     statusStr,
		"IsGestor":         isGestor(c),
	})
}

//
// ABERTURA
//

func ShowNewConferencia(c *gin.Context) {
	var fornecedores []models.Fornecedor
	database.DB.Where("ativo = ?", true).Order("razao_social asc").Find(&fornecedores)

	render(c, http.StatusOK, "conferencias_new.html", gin.H{
		"fornecedores": fornecedores,
		"error":        "",
	})
}

func CreateConferencia(c *gin.Context) {
	fornecedorIDStr := c.PostForm("fornecedor_id")
	competencia := c.PostForm("competencia") // "2024-01" para mês cheio
	inicioStr := c.PostForm("periodo_inicio")
	fimStr := c.PostForm("periodo_fim")

	fid, err := strconv.Atoi(fornecedorIDStr)
	if err != nil || fid <= 0 {
		renderConferenciaError(c, "Selecione o fornecedor")
		return
	}

	var fornecedor models.Fornecedor
	if err := database.DB.First(&fornecedor, fid).Error; err != nil {
		renderConferenciaError(c, "Fornecedor não encontrado")
		return
	}

	// ou uma competência mensal, ou um período livre
	var inicio, fim time.Time
	if competencia != "" {
		ref, err := time.Parse("2006-01", competencia)
		if err != nil {
			renderConferenciaError(c, "Competência inválida (use AAAA-MM)")
			return
		}
		inicio = ref
		fim = ref.AddDate(0, 1, -1)
	} else {
		inicio, err = time.Parse("2006-01-02", inicioStr)
		if err != nil {
			renderConferenciaError(c, "Data inicial inválida")
			return
		}
		fim, err = time.Parse("2006-01-02", fimStr)
		if err != nil {
			renderConferenciaError(c, "Data final inválida")
			return
		}
	}

	// teto de conferências do contrato vigente do fornecedor: bloqueio rígido
	contrato, err := contratoAtivoDoFornecedor(database.DB, fornecedor.ID, inicio)
	if err != nil {
		renderConferenciaError(c, "Erro ao verificar contrato do fornecedor")
		return
	}
	if contrato != nil {
		pode, err := limites.PodeAceitarConferencia(database.DB, contrato)
		if err != nil {
			renderConferenciaError(c, "Erro ao verificar teto de conferências")
			return
		}
		if !pode {
			renderConferenciaError(c, "Contrato do fornecedor atingiu o teto de conferências")
			return
		}
	}

	conf, err := conferencias.Criar(database.DB, fornecedor.ID, inicio, fim)
	if err != nil {
		if errors.Is(err, conferencias.ErrValidacao) {
			renderConferenciaError(c, "Período inválido")
			return
		}
		renderConferenciaError(c, "Erro ao abrir conferência")
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditConferencia, conf.ID, "create",
			"Conferência aberta para "+fornecedor.RazaoSocial)
	}

	c.Redirect(http.StatusFound, "/conferencias/"+strconv.Itoa(int(conf.ID)))
}

func renderConferenciaError(c *gin.Context, msg string) {
	var fornecedores []models.Fornecedor
	database.DB.Where("ativo = ?", true).Order("razao_social asc").Find(&fornecedores)

	render(c, http.StatusBadRequest, "conferencias_new.html", gin.H{
		"error":        msg,
		"fornecedores": fornecedores,
	})
}

//
// DETALHE
//

func ShowConferenciaDetail(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de conferência inválido")
		return
	}

	var conf models.Conferencia
	if err := database.DB.
		Preload("Fornecedor").
		Preload("PedidosManuais").
		Preload("FinalizadaPor").
		First(&conf, id).Error; err != nil {
		c.String(http.StatusNotFound, "Conferência não encontrada")
		return
	}

	// requisições concretizadas que compõem o total do período
	var requisicoes []models.Requisicao
	database.DB.
		Where("fornecedor_id = ? AND status = ? AND data_concretizacao >= ? AND data_concretizacao <= ?",
			conf.FornecedorID, models.RequisicaoConcretizada, conf.PeriodoInicio, conf.PeriodoFim).
		Order("data_concretizacao asc").
		Find(&requisicoes)

	render(c, http.StatusOK, "conferencia_detail.html", gin.H{
		"conferencia": conf,
		"requisicoes": requisicoes,
		"Editavel":    conf.Status == models.ConferenciaEmAndamento,
		"IsGestor":    isGestor(c),
	})
}

//
// PEDIDOS MANUAIS
//

func AddPedidoManual(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de conferência inválido")
		return
	}

	valorStr := strings.ReplaceAll(strings.TrimSpace(c.PostForm("valor")), ",", ".")
	valor, err := decimal.NewFromString(valorStr)
	if err != nil {
		c.String(http.StatusBadRequest, "Valor inválido")
		return
	}

	data := time.Now()
	if dataStr := c.PostForm("data"); dataStr != "" {
		d, err := time.Parse("2006-01-02", dataStr)
		if err != nil {
			c.String(http.StatusBadRequest, "Data inválida")
			return
		}
		data = d
	}

	input := conferencias.PedidoManualInput{
		Descricao:     c.PostForm("descricao"),
		Valor:         valor,
		NumeroPedido:  c.PostForm("numero_pedido"),
		Data:          data,
		Justificativa: c.PostForm("justificativa"),
	}

	pedido, err := conferencias.AdicionarPedidoManual(database.DB, uint(id), input)
	if err != nil {
		switch {
		case errors.Is(err, conferencias.ErrEstadoInvalido):
			c.String(http.StatusBadRequest, "Conferência finalizada não aceita pedidos manuais")
		case errors.Is(err, conferencias.ErrValidacao):
			c.String(http.StatusBadRequest, "Pedido manual inválido: "+err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.String(http.StatusNotFound, "Conferência não encontrada")
		default:
			c.String(http.StatusInternalServerError, "Erro ao lançar pedido manual")
		}
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditConferencia, uint(id), "pedido_manual",
			"Pedido manual lançado: "+pedido.Descricao+" ("+pedido.Valor.StringFixed(2)+")")
	}

	c.Redirect(http.StatusFound, "/conferencias/"+idStr)
}

func RemovePedidoManual(c *gin.Context) {
	idStr := c.Param("id")
	pedidoStr := c.Param("pedido_id")

	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de conferência inválido")
		return
	}
	pedidoID, err := strconv.Atoi(pedidoStr)
	if err != nil || pedidoID <= 0 {
		c.String(http.StatusBadRequest, "ID de pedido inválido")
		return
	}

	err = conferencias.RemoverPedidoManual(database.DB, uint(id), uint(pedidoID))
	if err != nil {
		switch {
		case errors.Is(err, conferencias.ErrEstadoInvalido):
			c.String(http.StatusBadRequest, "Conferência finalizada não pode perder lançamentos")
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.String(http.StatusNotFound, "Pedido manual não encontrado")
		default:
			c.String(http.StatusInternalServerError, "Erro ao remover pedido manual")
		}
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditConferencia, uint(id), "pedido_manual",
			"Pedido manual removido")
	}

	c.Redirect(http.StatusFound, "/conferencias/"+idStr)
}

//
// FINALIZAÇÃO / EXCLUSÃO
//

func FinalizarConferencia(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de conferência inválido")
		return
	}

	uid := currentUserID(c)
	err = conferencias.Finalizar(database.DB, uint(id), uid, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, conferencias.ErrEstadoInvalido):
			// a UI esconde o botão, mas a regra confere de novo
			c.String(http.StatusBadRequest, "Conferência já foi finalizada")
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.String(http.StatusNotFound, "Conferência não encontrada")
		default:
			c.String(http.StatusInternalServerError, "Erro ao finalizar conferência")
		}
		return
	}

	if uid != 0 {
		database.CreateAuditLog(uid, database.AuditConferencia, uint(id), "finalizar", "Conferência finalizada")
	}

	c.Redirect(http.StatusFound, "/conferencias/"+idStr)
}

func DeleteConferencia(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de conferência inválido")
		return
	}

	err = conferencias.Excluir(database.DB, uint(id))
	if err != nil {
		switch {
		case errors.Is(err, conferencias.ErrEstadoInvalido):
			c.String(http.StatusBadRequest, "Conferência finalizada não pode ser excluída")
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.String(http.StatusNotFound, "Conferência não encontrada")
		default:
			c.String(http.StatusInternalServerError, "Erro ao excluir conferência")
		}
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditConferencia, uint(id), "delete", "Conferência excluída")
	}

	c.Redirect(http.StatusFound, "/conferencias")
}
