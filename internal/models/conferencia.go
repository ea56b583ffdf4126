package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ConferenciaStatus string

const (
	ConferenciaEmAndamento ConferenciaStatus = "em_andamento"
	ConferenciaFinalizada  ConferenciaStatus = "finalizada"
)

// Conferencia consolida o faturamento de um fornecedor num período:
// requisições concretizadas + pedidos lançados manualmente.
// TotalGeral é sempre a soma dos outros dois totais.
// Depois de finalizada nada mais pode ser alterado; não existe reabertura.
type Conferencia struct {
	gorm.Model
	FornecedorID uint `gorm:"index;not null"`
	Fornecedor   Fornecedor

	PeriodoInicio time.Time `gorm:"not null"`
	PeriodoFim    time.Time `gorm:"not null"`

	TotalRequisicoes    decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalPedidosManuais decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalGeral          decimal.Decimal `gorm:"type:decimal(14,2)"`

	Status ConferenciaStatus `gorm:"type:varchar(20);not null"`

	FinalizadaEm    *time.Time
	FinalizadaPorID *uint
	FinalizadaPor   *User `gorm:"foreignKey:FinalizadaPorID"`

	PedidosManuais []PedidoManual `gorm:"constraint:OnDelete:CASCADE"`
}

// PedidoManual é um lançamento avulso dentro de uma conferência, sem requisição
// formal por trás. Criado e removido apenas com a conferência em andamento.
type PedidoManual struct {
	gorm.Model
	ConferenciaID uint `gorm:"index;not null"`

	Descricao     string          `gorm:"size:255;not null"`
	Valor         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	NumeroPedido  string          `gorm:"size:50"`
	Data          time.Time
	Justificativa string `gorm:"type:text"`
}
