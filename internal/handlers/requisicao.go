package handlers

import (
	"log"
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
)

//
// LISTA DE REQUISIÇÕES
//

// Lista + filtros
func ListRequisicoes(c *gin.Context) {
	role := currentRole(c)

	fornecedorIDStr := c.Query("fornecedor_id")
	departamentoIDStr := c.Query("departamento_id")
	statusStr := c.Query("status")

	dbq := database.DB.
		Preload("Fornecedor").
		Preload("DepartamentoOrigem").
		Preload("DepartamentoDestino").
		Order("created_at desc")

	if fornecedorIDStr != "" {
		if fid, err := strconv.Atoi(fornecedorIDStr); err == nil && fid > 0 {
			dbq = dbq.Where("fornecedor_id = ?", fid)
		}
	}
	if departamentoIDStr != "" {
		if did, err := strconv.Atoi(departamentoIDStr); err == nil && did > 0 {
			dbq = dbq.Where("departamento_origem_id = ?", did)
		}
	}
	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}

	var requisicoes []models.Requisicao
	if err := dbq.Find(&requisicoes).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao carregar requisições")
		return
	}

	var fornecedores []models.Fornecedor
	database.DB.Order("razao_social asc").Find(&fornecedores)

	var departamentos []models.Departamento
	database.DB.Order("nome asc").Find(&departamentos)

	render(c, http.StatusOK, "requisicoes_list.html", gin.H{
		"requisicoes":        requisicoes,
		"fornecedores":       fornecedores,
		"departamentos":      departamentos,
		"FilterFornecedor":   fornecedorIDStr,
		"FilterDepartamento": departamentoIDStr,
		"FilterStatus":       statusStr,

		"IsAdmin":        role == models.RoleAdmin,
		"IsGestor":       role == models.RoleGestor,
		"IsRequisitante": role == models.RoleRequisitante,
	})
}

//
// CRIAÇÃO
//

func ShowNewRequisicao(c *gin.Context) {
	var departamentos []models.Departamento
	database.DB.Order("nome asc").Find(&departamentos)

	var fornecedores []models.Fornecedor
	database.DB.Where("ativo = ?", true).Order("razao_social asc").Find(&fornecedores)

	var contratos []models.Contrato
	database.DB.Where("status = ?", models.ContratoAtivo).Order("numero asc").Find(&contratos)

	render(c, http.StatusOK, "requisicoes_new.html", gin.H{
		"departamentos": departamentos,
		"fornecedores":  fornecedores,
		"contratos":     contratos,
		"error":         "",
	})
}

func CreateRequisicao(c *gin.Context) {
	descricao := strings.TrimSpace(c.PostForm("descricao"))
	origemStr := c.PostForm("departamento_origem_id")
	destinoStr := c.PostForm("departamento_destino_id")
	fornecedorIDStr := c.PostForm("fornecedor_id")
	contratoIDStr := c.PostForm("contrato_id")

	if len(descricao) < 3 {
		renderRequisicaoError(c, "Descrição deve ter ao menos 3 caracteres")
		return
	}

	origemID, err := strconv.Atoi(origemStr)
	if err != nil || origemID <= 0 {
		renderRequisicaoError(c, "Selecione o departamento solicitante")
		return
	}
	destinoID, err := strconv.Atoi(destinoStr)
	if err != nil || destinoID <= 0 {
		renderRequisicaoError(c, "Selecione o departamento recebedor")
		return
	}

	var origem models.Departamento
	if err := database.DB.First(&origem, origemID).Error; err != nil {
		renderRequisicaoError(c, "Departamento solicitante não encontrado")
		return
	}
	var destino models.Departamento
	if err := database.DB.First(&destino, destinoID).Error; err != nil {
		renderRequisicaoError(c, "Departamento recebedor não encontrado")
		return
	}

	var fornecedorID *uint
	if fornecedorIDStr != "" {
		fid, err := strconv.Atoi(fornecedorIDStr)
		if err != nil || fid <= 0 {
			renderRequisicaoError(c, "Fornecedor inválido")
			return
		}
		var fornecedor models.Fornecedor
		if err := database.DB.First(&fornecedor, fid).Error; err != nil {
			renderRequisicaoError(c, "Fornecedor não encontrado")
			return
		}
		fornecedorID = &fornecedor.ID
	}

	// Contrato é opcional. Quando informado, o teto de requisições é um
	// bloqueio rígido: estourou, a criação é recusada.
	var contratoID *uint
	if contratoIDStr != "" {
		cid, err := strconv.Atoi(contratoIDStr)
		if err != nil || cid <= 0 {
			renderRequisicaoError(c, "Contrato inválido")
			return
		}
		var contrato models.Contrato
		if err := database.DB.First(&contrato, cid).Error; err != nil {
			renderRequisicaoError(c, "Contrato não encontrado")
			return
		}
		if contrato.Status != models.ContratoAtivo || !contrato.Vigente(time.Now()) {
			renderRequisicaoError(c, "Contrato fora de vigência ou inativo")
			return
		}

		pode, err := limites.PodeAceitarRequisicao(database.DB, &contrato)
		if err != nil {
			renderRequisicaoError(c, "Erro ao verificar teto do contrato")
			return
		}
		if !pode {
			renderRequisicaoError(c, "Contrato atingiu o teto de requisições")
			return
		}
		contratoID = &contrato.ID
	}

	uid := currentUserID(c)

	requisicao := models.Requisicao{
		DepartamentoOrigemID:  origem.ID,
		DepartamentoDestinoID: destino.ID,
		FornecedorID:          fornecedorID,
		ContratoID:            contratoID,
		Descricao:             descricao,
		Status:                models.RequisicaoPendente,
		SolicitanteID:         uid,
	}

	if err := database.DB.Create(&requisicao).Error; err != nil {
		renderRequisicaoError(c, "Erro ao salvar requisição")
		return
	}

	if uid != 0 {
		database.CreateAuditLog(uid, database.AuditRequisicao, requisicao.ID, "create", "Requisição aberta: "+requisicao.Descricao)
	}

	c.Redirect(http.StatusFound, "/requisicoes")
}

func renderRequisicaoError(c *gin.Context, msg string) {
	var departamentos []models.Departamento
	database.DB.Order("nome asc").Find(&departamentos)

	var fornecedores []models.Fornecedor
	database.DB.Where("ativo = ?", true).Order("razao_social asc").Find(&fornecedores)

	var contratos []models.Contrato
	database.DB.Where("status = ?", models.ContratoAtivo).Order("numero asc").Find(&contratos)

	render(c, http.StatusBadRequest, "requisicoes_new.html", gin.H{
		"error":         msg,
		"departamentos": departamentos,
		"fornecedores":  fornecedores,
		"contratos":     contratos,
	})
}

//
// DETALHE + ITENS
//

func ShowRequisicaoDetail(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de requisição inválido")
		return
	}

	var requisicao models.Requisicao
	if err := database.DB.
		Preload("Fornecedor").
		Preload("Contrato").
		Preload("DepartamentoOrigem").
		Preload("DepartamentoDestino").
		Preload("Itens").
		First(&requisicao, id).Error; err != nil {
		c.String(http.StatusNotFound, "Requisição não encontrada")
		return
	}

	render(c, http.StatusOK, "requisicao_detail.html", gin.H{
		"requisicao": requisicao,
		"IsGestor":   isGestor(c),
	})
}

func AddRequisicaoItem(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de requisição inválido")
		return
	}

	var requisicao models.Requisicao
	if err := database.DB.First(&requisicao, id).Error; err != nil {
		c.String(http.StatusNotFound, "Requisição não encontrada")
		return
	}

	// itens só entram antes da concretização
	if requisicao.Status == models.RequisicaoConcretizada || requisicao.Status == models.RequisicaoCancelada {
		c.String(http.StatusBadRequest, "Requisição já encerrada, itens não podem ser incluídos")
		return
	}

	descricao := strings.TrimSpace(c.PostForm("descricao"))
	quantidadeStr := c.PostForm("quantidade")
	valorUnitStr := strings.ReplaceAll(c.PostForm("valor_unitario"), ",", ".")
	permanente := c.PostForm("permanente") == "on" || c.PostForm("permanente") == "true"
	categoria := strings.TrimSpace(c.PostForm("categoria"))

	if descricao == "" {
		c.String(http.StatusBadRequest, "Descrição do item é obrigatória")
		return
	}
	quantidade, err := strconv.Atoi(quantidadeStr)
	if err != nil || quantidade <= 0 {
		c.String(http.StatusBadRequest, "Quantidade inválida")
		return
	}
	valorUnit, err := decimal.NewFromString(valorUnitStr)
	if err != nil || valorUnit.IsNegative() {
		c.String(http.StatusBadRequest, "Valor unitário inválido")
		return
	}

	item := models.RequisicaoItem{
		RequisicaoID:  requisicao.ID,
		Descricao:     descricao,
		Quantidade:    quantidade,
		ValorUnitario: valorUnit,
		ValorTotal:    valorUnit.Mul(decimal.NewFromInt(int64(quantidade))),
		Permanente:    permanente,
		Categoria:     categoria,
	}

	if err := database.DB.Create(&item).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao salvar item")
		return
	}

	c.Redirect(http.StatusFound, "/requisicoes/"+idStr)
}

//
// MUDANÇA DE STATUS (autorizar / cancelar)
//

func ChangeRequisicaoStatus(c *gin.Context) {
	idStr := c.Param("id")
	statusStr := c.PostForm("status")

	rid, err := strconv.Atoi(idStr)
	if err != nil || rid <= 0 {
		c.String(http.StatusBadRequest, "ID de requisição inválido")
		return
	}

	var requisicao models.Requisicao
	if err := database.DB.First(&requisicao, rid).Error; err != nil {
		c.String(http.StatusNotFound, "Requisição não encontrada")
		return
	}

	newStatus := models.RequisicaoStatus(statusStr)

	switch newStatus {
	case models.RequisicaoAutorizada, models.RequisicaoCancelada:
	case models.RequisicaoConcretizada:
		// concretização tem fluxo próprio, com valor final
		c.String(http.StatusBadRequest, "Use o formulário de concretização")
		return
	default:
		c.String(http.StatusBadRequest, "Status inválido")
		return
	}

	role := currentRole(c)
	if !canChangeRequisicaoStatus(role, requisicao.Status, newStatus) {
		c.String(http.StatusForbidden, "Permissão insuficiente")
		return
	}

	// pendente não consome cota do contrato; o teto é cobrado de novo aqui
	if newStatus == models.RequisicaoAutorizada {
		pode, err := limites.PodeAutorizarRequisicao(database.DB, &requisicao)
		if err != nil {
			c.String(http.StatusInternalServerError, "Erro ao verificar teto do contrato")
			return
		}
		if !pode {
			c.String(http.StatusBadRequest, "Contrato atingiu o teto de requisições")
			return
		}
	}

	requisicao.Status = newStatus
	if err := database.DB.Save(&requisicao).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao atualizar status")
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditRequisicao, requisicao.ID, "status_change",
			"Status alterado para: "+string(newStatus))
	}

	c.Redirect(http.StatusFound, "/requisicoes/"+idStr)
}

// regras de perfil sobre as transições válidas
func canChangeRequisicaoStatus(role models.UserRole, current, next models.RequisicaoStatus) bool {
	if current == next {
		return false
	}

	// transições que existem no fluxo, independente do perfil
	valida := false
	switch current {
	case models.RequisicaoPendente:
		valida = next == models.RequisicaoAutorizada || next == models.RequisicaoCancelada
	case models.RequisicaoAutorizada:
		valida = next == models.RequisicaoConcretizada || next == models.RequisicaoCancelada
	}
	if !valida {
		return false
	}

	switch role {

	case models.RoleAdmin, models.RoleGestor:
		return true

	case models.RoleRequisitante:
		// requisitante só cancela o que ainda está pendente
		return current == models.RequisicaoPendente && next == models.RequisicaoCancelada

	default:
		return false
	}
}

//
// CONCRETIZAÇÃO
//

// ConcretizarRequisicao fecha a requisição com valor final e data. Aplica a
// política do teto mensal do contrato (brando marca excedente, rígido
// recusa), dispara a integração de bens permanentes com o patrimônio e
// propaga o valor para conferências abertas do fornecedor.
func ConcretizarRequisicao(c *gin.Context) {
	role := currentRole(c)
	if role != models.RoleAdmin && role != models.RoleGestor {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	idStr := c.Param("id")
	rid, err := strconv.Atoi(idStr)
	if err != nil || rid <= 0 {
		c.String(http.StatusBadRequest, "ID de requisição inválido")
		return
	}

	var requisicao models.Requisicao
	if err := database.DB.Preload("Itens").First(&requisicao, rid).Error; err != nil {
		c.String(http.StatusNotFound, "Requisição não encontrada")
		return
	}

	if !canChangeRequisicaoStatus(role, requisicao.Status, models.RequisicaoConcretizada) {
		c.String(http.StatusBadRequest, "Requisição não está autorizada")
		return
	}

	valorStr := strings.ReplaceAll(strings.TrimSpace(c.PostForm("valor_final")), ",", ".")
	valor, err := decimal.NewFromString(valorStr)
	if err != nil || !valor.IsPositive() {
		c.String(http.StatusBadRequest, "Valor final inválido")
		return
	}

	data := time.Now()
	if dataStr := c.PostForm("data_concretizacao"); dataStr != "" {
		d, err := time.Parse("2006-01-02", dataStr)
		if err != nil {
			c.String(http.StatusBadRequest, "Data de concretização inválida")
			return
		}
		data = d
	}

	// teto mensal do contrato
	excedente := false
	if requisicao.ContratoID != nil {
		var contrato models.Contrato
		if err := database.DB.First(&contrato, *requisicao.ContratoID).Error; err != nil {
			c.String(http.StatusNotFound, "Contrato da requisição não encontrado")
			return
		}

		excede, err := limites.ExcedeValorMensal(database.DB, &contrato, data.Year(), data.Month(), decimal.Zero, valor)
		if err != nil {
			c.String(http.StatusInternalServerError, "Erro ao verificar teto mensal")
			return
		}
		if excede {
			if cfg != nil && cfg.LimiteValorMensalBloqueia {
				c.String(http.StatusBadRequest, "Concretização recusada: teto mensal do contrato seria estourado")
				return
			}
			// teto brando: concretiza mesmo assim, marcada como excedente
			excedente = true
		}
	}

	requisicao.Status = models.RequisicaoConcretizada
	requisicao.ValorFinal = &valor
	requisicao.DataConcretizacao = &data
	requisicao.Excedente = excedente

	if err := database.DB.Save(&requisicao).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao concretizar requisição")
		return
	}

	// bens permanentes elegíveis vão para a fila do patrimônio
	if patrimonioSvc != nil {
		for i := range requisicao.Itens {
			item := &requisicao.Itens[i]
			if !patrimonioSvc.DeveIntegrar(item) {
				continue
			}
			if _, err := patrimonioSvc.Enviar(database.DB, item); err != nil {
				log.Printf("failed to queue patrimonio integration for item %d: %v", item.ID, err)
			}
		}
	}

	// conferências abertas do fornecedor passam a enxergar o novo valor
	if requisicao.FornecedorID != nil {
		if err := conferencias.RecalcularAbertas(database.DB, *requisicao.FornecedorID, data); err != nil {
			log.Printf("failed to recalculate open conferencias: %v", err)
		}
	}

	if uid := currentUserID(c); uid != 0 {
		detalhe := "Requisição concretizada, valor " + valor.StringFixed(2)
		if excedente {
			detalhe += " (excedente ao teto mensal)"
		}
		database.CreateAuditLog(uid, database.AuditRequisicao, requisicao.ID, "concretizar", detalhe)
	}

	c.Redirect(http.StatusFound, "/requisicoes/"+idStr)
}

//
// EDIÇÃO DO VALOR FINAL
//

// UpdateRequisicaoValor altera o valor final de uma requisição já
// concretizada: é a edição feita de dentro da tela da conferência.
// O novo valor se propaga para as conferências abertas do período.
func UpdateRequisicaoValor(c *gin.Context) {
	role := currentRole(c)
	if role != models.RoleAdmin && role != models.RoleGestor {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	idStr := c.Param("id")
	rid, err := strconv.Atoi(idStr)
	if err != nil || rid <= 0 {
		c.String(http.StatusBadRequest, "ID de requisição inválido")
		return
	}

	var requisicao models.Requisicao
	if err := database.DB.First(&requisicao, rid).Error; err != nil {
		c.String(http.StatusNotFound, "Requisição não encontrada")
		return
	}

	if requisicao.Status != models.RequisicaoConcretizada {
		c.String(http.StatusBadRequest, "Só requisições concretizadas têm valor final editável")
		return
	}

	valorStr := strings.ReplaceAll(strings.TrimSpace(c.PostForm("valor_final")), ",", ".")
	valor, err := decimal.NewFromString(valorStr)
	if err != nil || !valor.IsPositive() {
		c.String(http.StatusBadRequest, "Valor final inválido")
		return
	}

	anterior := requisicao.ValorFinal

	// o teto mensal é reavaliado com o novo valor no lugar do antigo,
	// nos dois sentidos: a edição pode estourar ou desfazer o excedente
	if requisicao.ContratoID != nil && requisicao.DataConcretizacao != nil {
		var contrato models.Contrato
		if err := database.DB.First(&contrato, *requisicao.ContratoID).Error; err != nil {
			c.String(http.StatusNotFound, "Contrato da requisição não encontrado")
			return
		}

		atual := decimal.Zero
		if anterior != nil {
			atual = *anterior
		}
		data := *requisicao.DataConcretizacao
		excede, err := limites.ExcedeValorMensal(database.DB, &contrato, data.Year(), data.Month(), atual, valor)
		if err != nil {
			c.String(http.StatusInternalServerError, "Erro ao verificar teto mensal")
			return
		}
		if excede && cfg != nil && cfg.LimiteValorMensalBloqueia {
			c.String(http.StatusBadRequest, "Edição recusada: teto mensal do contrato seria estourado")
			return
		}
		requisicao.Excedente = excede
	}

	requisicao.ValorFinal = &valor

	if err := database.DB.Save(&requisicao).Error; err != nil {
		c.String(http.StatusInternalServerError, "Erro ao salvar valor")
		return
	}

	if requisicao.FornecedorID != nil && requisicao.DataConcretizacao != nil {
		if err := conferencias.RecalcularAbertas(database.DB, *requisicao.FornecedorID, *requisicao.DataConcretizacao); err != nil {
			log.Printf("failed to recalculate open conferencias: %v", err)
		}
	}

	if uid := currentUserID(c); uid != 0 {
		detalhe := "Valor final alterado para " + valor.StringFixed(2)
		if anterior != nil {
			detalhe = "Valor final alterado de " + anterior.StringFixed(2) + " para " + valor.StringFixed(2)
		}
		database.CreateAuditLog(uid, database.AuditRequisicao, requisicao.ID, "update", detalhe)
	}

	retorno := c.PostForm("retorno")
	if retorno == "" {
		retorno = "/requisicoes/" + idStr
	}
	c.Redirect(http.StatusFound, retorno)
}
