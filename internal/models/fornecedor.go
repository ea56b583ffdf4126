package models

import "gorm.io/gorm"

// Fornecedor é uma empresa contratada pela prefeitura.
type Fornecedor struct {
	gorm.Model
	RazaoSocial string `gorm:"size:255;not null"` // Razão social da empresa
	CNPJ        string `gorm:"size:18"`           // CNPJ (opcional, mas único quando informado)
	Email       string `gorm:"size:255"`          // E-mail do contato comercial
	Telefone    string `gorm:"size:50"`
	Endereco    string `gorm:"size:255"`
	Observacoes string `gorm:"type:text"`
	Ativo       bool   `gorm:"default:true"`

	Contratos    []Contrato
	Requisicoes  []Requisicao
	Conferencias []Conferencia
}
