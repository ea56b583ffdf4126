package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gestao-compras/internal/database"
	"gestao-compras/internal/limites"
	"gestao-compras/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

//
// LISTA DE CONTRATOS
//

func ListContratos(c *gin.Context) {
	// contratos vencidos viram "expirado" na listagem, não por timer
	_ = limites.MarcarExpirados(database.DB, time.Now())

	statusStr := c.Query("status")
	fornecedorIDStr := c.Query("fornecedor_id")

	dbq := database.DB.Preload("Fornecedor").Order("vigencia_fim asc")

	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}
	if fornecedorIDStr != "" {
		if fid, err := strconv.Atoi(fornecedorIDStr); err == nil && fid > 0 {
			dbq = dbq.Where("fornecedor_id = ?", fid)
		}
	}

	var contratos []models.Contrato
	if err := dbq.Find(&contratos).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao carregar contratos")
		return
	}

	var fornecedores []models.Fornecedor
	database.DB.Order("razao_social asc").Find(&fornecedores)

	render(c, http.StatusOK, "contratos_list.html", gin.H{
		"contratos":        contratos,
		"fornecedores":     fornecedores,
		"FilterStatus":     statusStr,
		"FilterFornecedor": fornecedorIDStr,
		"IsGestor":         isGestor(c),
	})
}

//
// CRIAÇÃO
//

func ShowNewContrato(c *gin.Context) {
	var fornecedores []models.Fornecedor
	database.DB.Where("ativo = ?", true).Order("razao_social asc").Find(&fornecedores)

	render(c, http.StatusOK, "contratos_new.html", gin.H{
		"fornecedores": fornecedores,
		"error":        "",
	})
}

func CreateContrato(c *gin.Context) {
	numero := strings.TrimSpace(c.PostForm("numero"))
	objeto := strings.TrimSpace(c.PostForm("objeto"))
	fornecedorIDStr := c.PostForm("fornecedor_id")
	inicioStr := c.PostForm("vigencia_inicio")
	fimStr := c.PostForm("vigencia_fim")

	if len(numero) < 3 {
		renderContratoError(c, "Número do contrato deve ter ao menos 3 caracteres")
		return
	}

	inicio, err := time.Parse("2006-01-02", inicioStr)
	if err != nil {
		renderContratoError(c, "Data de início inválida")
		return
	}
	fim, err := time.Parse("2006-01-02", fimStr)
	if err != nil {
		renderContratoError(c, "Data de fim inválida")
		return
	}
	if fim.Before(inicio) {
		renderContratoError(c, "Vigência invertida: fim antes do início")
		return
	}

	var count int64
	database.DB.Model(&models.Contrato{}).
		Where("numero = ?", numero).
		Count(&count)
	if count > 0 {
		renderContratoError(c, "Já existe contrato com esse número")
		return
	}

	// fornecedor é opcional: vazio significa contrato geral
	var fornecedorID *uint
	if fornecedorIDStr != "" {
		fid, err := strconv.Atoi(fornecedorIDStr)
		if err != nil || fid <= 0 {
			renderContratoError(c, "Fornecedor inválido")
			return
		}
		var fornecedor models.Fornecedor
		if err := database.DB.First(&fornecedor, fid).Error; err != nil {
			renderContratoError(c, "Fornecedor não encontrado")
			return
		}
		fornecedorID = &fornecedor.ID
	}

	limReq, ok := parseLimiteInt(c.PostForm("limite_requisicoes"))
	if !ok {
		renderContratoError(c, "Limite de requisições inválido")
		return
	}
	limConf, ok := parseLimiteInt(c.PostForm("limite_conferencias"))
	if !ok {
		renderContratoError(c, "Limite de conferências inválido")
		return
	}
	limValor, ok := parseLimiteDecimal(c.PostForm("limite_valor_mensal"))
	if !ok {
		renderContratoError(c, "Limite de valor mensal inválido")
		return
	}

	contrato := models.Contrato{
		FornecedorID:       fornecedorID,
		Numero:             numero,
		Objeto:             objeto,
		VigenciaInicio:     inicio,
		VigenciaFim:        fim,
		LimiteRequisicoes:  limReq,
		LimiteConferencias: limConf,
		LimiteValorMensal:  limValor,
		Status:             models.ContratoAtivo,
	}

	if err := database.DB.Create(&contrato).Error; err != nil {
		renderContratoError(c, "Erro ao salvar contrato")
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditContrato, contrato.ID, "create", "Contrato criado: "+contrato.Numero)
	}

	c.Redirect(http.StatusFound, "/contratos")
}

//
// DETALHE: consumo dos tetos + histórico de alterações
//

func ShowContratoDetail(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de contrato inválido")
		return
	}

	var contrato models.Contrato
	if err := database.DB.Preload("Fornecedor").First(&contrato, id).Error; err != nil {
		c.String(http.StatusNotFound, "Contrato não encontrado")
		return
	}

	usoReq, err := limites.UsoRequisicoes(database.DB, &contrato)
	if err != nil {
		c.String(http.StatusInternalServerError, "Erro ao calcular consumo de requisições")
		return
	}
	usoConf, err := limites.UsoConferencias(database.DB, &contrato)
	if err != nil {
		c.String(http.StatusInternalServerError, "Erro ao calcular consumo de conferências")
		return
	}

	agora := time.Now()
	usoValor, err := limites.UsoValorMensal(database.DB, &contrato, agora.Year(), agora.Month())
	if err != nil {
		c.String(http.StatusInternalServerError, "Erro ao calcular consumo mensal")
		return
	}

	var historico []models.ContratoLimiteHistorico
	database.DB.Where("contrato_id = ?", contrato.ID).
		Preload("User").
		Order("created_at desc").
		Find(&historico)

	render(c, http.StatusOK, "contrato_detail.html", gin.H{
		"contrato":  contrato,
		"usoReq":    usoReq,
		"usoConf":   usoConf,
		"usoValor":  usoValor,
		"historico": historico,
		"IsGestor":  isGestor(c),
	})
}

//
// EDIÇÃO DOS TETOS (com histórico)
//

func ShowEditContratoLimites(c *gin.Context) {
	if !isGestor(c) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	id := c.Param("id")
	var contrato models.Contrato
	if err := database.DB.Preload("Fornecedor").First(&contrato, id).Error; err != nil {
		c.String(http.StatusNotFound, "Contrato não encontrado")
		return
	}

	render(c, http.StatusOK, "contrato_limites_edit.html", gin.H{
		"contrato": contrato,
		"error":    "",
	})
}

func UpdateContratoLimites(c *gin.Context) {
	if !isGestor(c) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de contrato inválido")
		return
	}

	var contrato models.Contrato
	if err := database.DB.First(&contrato, id).Error; err != nil {
		c.String(http.StatusNotFound, "Contrato não encontrado")
		return
	}

	limReq, ok := parseLimiteInt(c.PostForm("limite_requisicoes"))
	if !ok {
		renderContratoLimitesError(c, contrato, "Limite de requisições inválido")
		return
	}
	limConf, ok := parseLimiteInt(c.PostForm("limite_conferencias"))
	if !ok {
		renderContratoLimitesError(c, contrato, "Limite de conferências inválido")
		return
	}
	limValor, ok := parseLimiteDecimal(c.PostForm("limite_valor_mensal"))
	if !ok {
		renderContratoLimitesError(c, contrato, "Limite de valor mensal inválido")
		return
	}

	uid := currentUserID(c)
	novos := limites.NovosLimites{
		Requisicoes:  limReq,
		Conferencias: limConf,
		ValorMensal:  limValor,
	}

	if err := limites.AtualizarLimites(database.DB, contrato.ID, novos, uid, time.Now()); err != nil {
		if errors.Is(err, limites.ErrValidacao) {
			renderContratoLimitesError(c, contrato, "Tetos não podem ser negativos")
			return
		}
		renderContratoLimitesError(c, contrato, "Erro ao salvar tetos do contrato")
		return
	}

	if uid != 0 {
		database.CreateAuditLog(uid, database.AuditContrato, contrato.ID, "update", "Tetos alterados no contrato "+contrato.Numero)
	}

	c.Redirect(http.StatusFound, "/contratos/"+idStr)
}

//
// DESATIVAÇÃO MANUAL
//

func DeactivateContrato(c *gin.Context) {
	if !isGestor(c) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID inválido")
		return
	}

	var contrato models.Contrato
	if err := database.DB.First(&contrato, id).Error; err != nil {
		c.String(http.StatusNotFound, "Contrato não encontrado")
		return
	}

	if contrato.Status == models.ContratoInativo {
		c.String(http.StatusBadRequest, "Contrato já está inativo")
		return
	}

	contrato.Status = models.ContratoInativo
	if err := database.DB.Save(&contrato).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao desativar contrato")
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditContrato, contrato.ID, "status_change", "Contrato desativado: "+contrato.Numero)
	}

	c.Redirect(http.StatusFound, "/contratos")
}

// parseLimiteInt trata campo vazio como nulo (ilimitado)
func parseLimiteInt(s string) (*int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return nil, false
	}
	return &v, true
}

func parseLimiteDecimal(s string) (*decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || v.IsNegative() {
		return nil, false
	}
	return &v, true
}

func renderContratoError(c *gin.Context, msg string) {
	var fornecedores []models.Fornecedor
	database.DB.Where("ativo = ?", true).Order("razao_social asc").Find(&fornecedores)

	render(c, http.StatusBadRequest, "contratos_new.html", gin.H{
		"error":        msg,
		"fornecedores": fornecedores,
	})
}

func renderContratoLimitesError(c *gin.Context, contrato models.Contrato, msg string) {
	render(c, http.StatusBadRequest, "contrato_limites_edit.html", gin.H{
		"contrato": contrato,
		"error":    msg,
	})
}

// contratoAtivoDoFornecedor busca o contrato ativo e vigente de um
// fornecedor, se houver. Usado pelos fluxos de requisição e conferência.
func contratoAtivoDoFornecedor(db *gorm.DB, fornecedorID uint, ref time.Time) (*models.Contrato, error) {
	var contrato models.Contrato
	err := db.Where("fornecedor_id = ? AND status = ? AND vigencia_inicio <= ? AND vigencia_fim >= ?",
		fornecedorID, models.ContratoAtivo, ref, ref).
		Order("vigencia_fim asc").
		First(&contrato).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contrato, nil
}
