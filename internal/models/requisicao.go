package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RequisicaoStatus string

const (
	RequisicaoPendente     RequisicaoStatus = "pendente"
	RequisicaoAutorizada   RequisicaoStatus = "autorizada"
	RequisicaoConcretizada RequisicaoStatus = "concretizada"
	RequisicaoCancelada    RequisicaoStatus = "cancelada"
)

// Requisicao é um pedido de compra de um departamento.
// Fluxo: pendente -> autorizada -> concretizada, ou cancelada.
type Requisicao struct {
	gorm.Model
	DepartamentoOrigemID  uint
	DepartamentoOrigem    Departamento `gorm:"foreignKey:DepartamentoOrigemID"`
	DepartamentoDestinoID uint
	DepartamentoDestino   Departamento `gorm:"foreignKey:DepartamentoDestinoID"`

	FornecedorID *uint
	Fornecedor   *Fornecedor
	ContratoID   *uint
	Contrato     *Contrato

	Descricao string           `gorm:"type:text"`
	Status    RequisicaoStatus `gorm:"type:varchar(20);not null"`

	// Preenchidos na concretização. Requisição concretizada sempre os tem.
	ValorFinal        *decimal.Decimal `gorm:"type:decimal(14,2)"`
	DataConcretizacao *time.Time

	// Marcada quando a concretização estourou o teto mensal do contrato
	// (teto brando: o registro é criado mesmo assim, só fica sinalizado).
	Excedente bool `gorm:"default:false"`

	Itens []RequisicaoItem `gorm:"constraint:OnDelete:CASCADE"`

	SolicitanteID uint // User.ID de quem abriu a requisição
}

type RequisicaoItem struct {
	gorm.Model
	RequisicaoID uint `gorm:"index;not null"`

	Descricao     string          `gorm:"size:255;not null"`
	Quantidade    int             `gorm:"not null"`
	ValorUnitario decimal.Decimal `gorm:"type:decimal(14,2)"`
	ValorTotal    decimal.Decimal `gorm:"type:decimal(14,2)"`

	// Bens permanentes acima do valor mínimo vão para o patrimônio.
	Permanente bool   `gorm:"default:false"`
	Categoria  string `gorm:"size:100"` // mobiliario, equipamento, veiculo, informatica...
}
