package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContratoLimiteHistorico registra cada alteração de teto de um contrato.
// Registros são imutáveis: nunca atualizados nem removidos junto com o
// contrato, mesmo quando ele é excluído.
//
// Delta = ValorNovo - ValorAnterior. Fica nulo quando qualquer um dos lados
// era ilimitado (nulo), porque a diferença não é computável.
type ContratoLimiteHistorico struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	ContratoID uint `gorm:"index;not null"`

	Campo         string           `gorm:"size:50;not null"` // "limite_requisicoes", "limite_conferencias", "limite_valor_mensal"
	ValorAnterior *decimal.Decimal `gorm:"type:decimal(14,2)"`
	ValorNovo     *decimal.Decimal `gorm:"type:decimal(14,2)"`
	Delta         *decimal.Decimal `gorm:"type:decimal(14,2)"`

	UserID uint
	User   User
}
