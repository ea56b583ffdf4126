package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"gestao-compras/internal/database"
	"gestao-compras/internal/models"

	"github.com/gin-gonic/gin"
)

// helper: quem pode gerenciar fornecedores (admin + gestor)
func isGestor(c *gin.Context) bool {
	role := currentRole(c)
	return role == models.RoleAdmin || role == models.RoleGestor
}

//
// LISTA / CADASTRO
//

func ListFornecedores(c *gin.Context) {
	role := currentRole(c)

	var fornecedores []models.Fornecedor
	database.DB.Order("razao_social asc").Find(&fornecedores)

	render(c, http.StatusOK, "fornecedores_list.html", gin.H{
		"fornecedores": fornecedores,
		"IsAdmin":      role == models.RoleAdmin,
		"IsGestor":     role == models.RoleGestor,
	})
}

func ShowNewFornecedor(c *gin.Context) {
	if !isGestor(c) {
		c.String(http.StatusForbidden, "Permissão insuficiente")
		return
	}

	render(c, http.StatusOK, "fornecedores_new.html", gin.H{
		"error": "",
	})
}

func CreateFornecedor(c *gin.Context) {
	if !isGestor(c) {
		c.String(http.StatusForbidden, "Permissão insuficiente")
		return
	}

	razao := strings.TrimSpace(c.PostForm("razao_social"))
	cnpj := strings.TrimSpace(c.PostForm("cnpj"))
	email := strings.TrimSpace(c.PostForm("email"))
	telefone := strings.TrimSpace(c.PostForm("telefone"))
	endereco := strings.TrimSpace(c.PostForm("endereco"))
	obs := strings.TrimSpace(c.PostForm("observacoes"))

	if len(razao) < 3 {
		renderFornecedorError(c, "Razão social deve ter ao menos 3 caracteres")
		return
	}

	// --- UNICIDADE DE CNPJ ---
	if cnpj != "" {
		var count int64
		database.DB.Model(&models.Fornecedor{}).
			Where("cnpj = ?", cnpj).
			Count(&count)

		if count > 0 {
			renderFornecedorError(c, "Já existe fornecedor com esse CNPJ")
			return
		}
	}

	// --- UNICIDADE DE RAZÃO SOCIAL ---
	var count int64
	database.DB.Model(&models.Fornecedor{}).
		Where("LOWER(razao_social) = LOWER(?)", razao).
		Count(&count)

	if count > 0 {
		renderFornecedorError(c, "Já existe fornecedor com essa razão social")
		return
	}

	fornecedor := models.Fornecedor{
		RazaoSocial: razao,
		CNPJ:        cnpj,
		Email:       email,
		Telefone:    telefone,
		Endereco:    endereco,
		Observacoes: obs,
		Ativo:       true,
	}

	if err := database.DB.Create(&fornecedor).Error; err != nil {
		renderFornecedorError(c, "Erro ao salvar fornecedor")
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditFornecedor, fornecedor.ID, "create", "Fornecedor cadastrado: "+fornecedor.RazaoSocial)
	}

	c.Redirect(http.StatusFound, "/fornecedores")
}

func ShowFornecedorDetail(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		c.String(http.StatusBadRequest, "ID de fornecedor inválido")
		return
	}

	var fornecedor models.Fornecedor
	// carrega junto contratos e conferências do fornecedor
	if err := database.DB.
		Preload("Contratos").
		Preload("Conferencias").
		First(&fornecedor, id).Error; err != nil {
		c.String(http.StatusNotFound, "Fornecedor não encontrado")
		return
	}

	render(c, http.StatusOK, "fornecedor_detail.html", gin.H{
		"fornecedor": fornecedor,
	})
}

// formulário de edição
func ShowEditFornecedor(c *gin.Context) {
	if !isGestor(c) {
		c.String(http.StatusForbidden, "Permissão insuficiente")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de fornecedor inválido")
		return
	}

	var fornecedor models.Fornecedor
	if err := database.DB.First(&fornecedor, id).Error; err != nil {
		c.String(http.StatusNotFound, "Fornecedor não encontrado")
		return
	}

	render(c, http.StatusOK, "fornecedores_edit.html", gin.H{
		"fornecedor": fornecedor,
		"error":      "",
	})
}

func UpdateFornecedor(c *gin.Context) {
	if !isGestor(c) {
		c.String(http.StatusForbidden, "Permissão insuficiente")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "ID de fornecedor inválido")
		return
	}

	var fornecedor models.Fornecedor
	if err := database.DB.First(&fornecedor, id).Error; err != nil {
		c.String(http.StatusNotFound, "Fornecedor não encontrado")
		return
	}

	razao := strings.TrimSpace(c.PostForm("razao_social"))
	cnpj := strings.TrimSpace(c.PostForm("cnpj"))
	email := strings.TrimSpace(c.PostForm("email"))
	telefone := strings.TrimSpace(c.PostForm("telefone"))
	endereco := strings.TrimSpace(c.PostForm("endereco"))
	obs := strings.TrimSpace(c.PostForm("observacoes"))
	ativo := c.PostForm("ativo") == "on" || c.PostForm("ativo") == "true"

	if len(razao) < 3 {
		render(c, http.StatusBadRequest, "fornecedores_edit.html", gin.H{
			"fornecedor": fornecedor,
			"error":      "Razão social deve ter ao menos 3 caracteres",
		})
		return
	}

	// --- UNICIDADE DE CNPJ (exceto o próprio) ---
	if cnpj != "" && cnpj != fornecedor.CNPJ {
		var count int64
		database.DB.Model(&models.Fornecedor{}).
			Where("cnpj = ? AND id <> ?", cnpj, fornecedor.ID).
			Count(&count)

		if count > 0 {
			render(c, http.StatusBadRequest, "fornecedores_edit.html", gin.H{
				"fornecedor": fornecedor,
				"error":      "Já existe fornecedor com esse CNPJ",
			})
			return
		}
	}

	// --- UNICIDADE DE RAZÃO SOCIAL ---
	if razao != fornecedor.RazaoSocial {
		var count int64
		database.DB.Model(&models.Fornecedor{}).
			Where("LOWER(razao_social) = LOWER(?) AND id <> ?", razao, fornecedor.ID).
			Count(&count)

		if count > 0 {
			render(c, http.StatusBadRequest, "fornecedores_edit.html", gin.H{
				"fornecedor": fornecedor,
				"error":      "Já existe fornecedor com essa razão social",
			})
			return
		}
	}

	fornecedor.RazaoSocial = razao
	fornecedor.CNPJ = cnpj
	fornecedor.Email = email
	fornecedor.Telefone = telefone
	fornecedor.Endereco = endereco
	fornecedor.Observacoes = obs
	fornecedor.Ativo = ativo

	if err := database.DB.Save(&fornecedor).Error; err != nil {
		render(c, http.StatusInternalServerError, "fornecedores_edit.html", gin.H{
			"fornecedor": fornecedor,
			"error":      "Erro ao salvar fornecedor",
		})
		return
	}

	if uid := currentUserID(c); uid != 0 {
		database.CreateAuditLog(uid, database.AuditFornecedor, fornecedor.ID, "update", "Fornecedor alterado: "+fornecedor.RazaoSocial)
	}

	c.Redirect(http.StatusFound, "/fornecedores/"+idStr)
}

func renderFornecedorError(c *gin.Context, msg string) {
	render(c, http.StatusBadRequest, "fornecedores_new.html", gin.H{
		"error": msg,
	})
}
