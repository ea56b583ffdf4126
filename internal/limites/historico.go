package limites

import (
	"errors"
	"fmt"
	"time"

	"gestao-compras/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrValidacao sinaliza teto inválido numa atualização.
var ErrValidacao = errors.New("limite inválido")

// Campos de teto rastreados no histórico.
const (
	CampoLimiteRequisicoes  = "limite_requisicoes"
	CampoLimiteConferencias = "limite_conferencias"
	CampoLimiteValorMensal  = "limite_valor_mensal"
)

// NovosLimites carrega os tetos desejados numa atualização.
// Ponteiro nulo significa "ilimitado", não "manter o atual".
type NovosLimites struct {
	Requisicoes  *int
	Conferencias *int
	ValorMensal  *decimal.Decimal
}

// AtualizarLimites aplica os tetos no contrato e grava uma linha de
// histórico por campo que mudou, tudo na mesma transação. O histórico é
// gravado explicitamente aqui, junto da mutação; nada de hooks escondidos.
func AtualizarLimites(db *gorm.DB, contratoID uint, novos NovosLimites, userID uint, agora time.Time) error {
	if novos.Requisicoes != nil && *novos.Requisicoes < 0 {
		return fmt.Errorf("%w: limite de requisições negativo", ErrValidacao)
	}
	if novos.Conferencias != nil && *novos.Conferencias < 0 {
		return fmt.Errorf("%w: limite de conferências negativo", ErrValidacao)
	}
	if novos.ValorMensal != nil && novos.ValorMensal.IsNegative() {
		return fmt.Errorf("%w: limite de valor mensal negativo", ErrValidacao)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var contrato models.Contrato
		if err := tx.First(&contrato, contratoID).Error; err != nil {
			return err
		}

		var historico []models.ContratoLimiteHistorico
		if h := mudancaInt(CampoLimiteRequisicoes, contrato.LimiteRequisicoes, novos.Requisicoes); h != nil {
			historico = append(historico, *h)
		}
		if h := mudancaInt(CampoLimiteConferencias, contrato.LimiteConferencias, novos.Conferencias); h != nil {
			historico = append(historico, *h)
		}
		if h := mudancaDecimal(CampoLimiteValorMensal, contrato.LimiteValorMensal, novos.ValorMensal); h != nil {
			historico = append(historico, *h)
		}

		if len(historico) == 0 {
			// nada mudou
			return nil
		}

		for i := range historico {
			historico[i].ContratoID = contrato.ID
			historico[i].UserID = userID
			historico[i].CreatedAt = agora
		}

		contrato.LimiteRequisicoes = novos.Requisicoes
		contrato.LimiteConferencias = novos.Conferencias
		contrato.LimiteValorMensal = novos.ValorMensal

		if err := tx.Save(&contrato).Error; err != nil {
			return err
		}
		return tx.Create(&historico).Error
	})
}

func mudancaInt(campo string, anterior, novo *int) *models.ContratoLimiteHistorico {
	var a, n *decimal.Decimal
	if anterior != nil {
		d := decimal.NewFromInt(int64(*anterior))
		a = &d
	}
	if novo != nil {
		d := decimal.NewFromInt(int64(*novo))
		n = &d
	}
	return mudancaDecimal(campo, a, n)
}

func mudancaDecimal(campo string, anterior, novo *decimal.Decimal) *models.ContratoLimiteHistorico {
	if iguais(anterior, novo) {
		return nil
	}
	h := &models.ContratoLimiteHistorico{
		Campo:         campo,
		ValorAnterior: anterior,
		ValorNovo:     novo,
	}
	// delta só é computável com os dois lados definidos
	if anterior != nil && novo != nil {
		d := novo.Sub(*anterior)
		h.Delta = &d
	}
	return h
}

func iguais(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
