package models

import (
	"time"

	"gorm.io/gorm"
)

type IntegracaoStatus string

const (
	IntegracaoPendente   IntegracaoStatus = "pendente"
	IntegracaoIntegrando IntegracaoStatus = "integrando"
	IntegracaoIntegrada  IntegracaoStatus = "integrado"
	IntegracaoErro       IntegracaoStatus = "erro"
)

// IntegracaoPatrimonio acompanha o envio de um bem permanente ao sistema
// externo de patrimônio. Registro em "erro" fica parado até um operador
// mandar reprocessar; não há retry automático.
type IntegracaoPatrimonio struct {
	gorm.Model
	Protocolo string `gorm:"size:36;uniqueIndex;not null"`

	RequisicaoItemID uint `gorm:"index;not null"`
	RequisicaoItem   RequisicaoItem

	Status       IntegracaoStatus `gorm:"type:varchar(20);not null"`
	Tentativas   int              `gorm:"default:0"`
	UltimoErro   string           `gorm:"size:255"`
	ProcessadoEm *time.Time
}
