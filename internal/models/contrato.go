package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ContratoStatus string

const (
	ContratoAtivo    ContratoStatus = "ativo"
	ContratoInativo  ContratoStatus = "inativo"
	ContratoExpirado ContratoStatus = "expirado"
)

// Contrato é um acordo com tetos opcionais de requisições, conferências e
// valor mensal. FornecedorID nulo indica contrato geral, sem fornecedor
// específico.
type Contrato struct {
	gorm.Model
	FornecedorID *uint
	Fornecedor   *Fornecedor

	Numero         string    `gorm:"size:50;uniqueIndex;not null"` // nº do processo/contrato
	Objeto         string    `gorm:"type:text"`
	VigenciaInicio time.Time `gorm:"not null"`
	VigenciaFim    time.Time `gorm:"not null"`

	// Tetos. Nulo = ilimitado; quando definidos, nunca negativos.
	LimiteRequisicoes  *int
	LimiteConferencias *int
	LimiteValorMensal  *decimal.Decimal `gorm:"type:decimal(14,2)"`

	Status ContratoStatus `gorm:"type:varchar(20);not null"`

	Historico []ContratoLimiteHistorico
}

// Vigente informa se ref cai dentro da janela de vigência.
func (ct *Contrato) Vigente(ref time.Time) bool {
	return !ref.Before(ct.VigenciaInicio) && !ref.After(ct.VigenciaFim)
}
