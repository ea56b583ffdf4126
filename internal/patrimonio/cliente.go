package patrimonio

import (
	"errors"
	"math/rand"

	"gestao-compras/internal/models"
)

// ErrIndisponivel é a resposta de falha do sistema de patrimônio.
var ErrIndisponivel = errors.New("sistema de patrimônio indisponível")

// Cliente é a fronteira com o sistema externo de patrimônio.
// A implementação de verdade faria uma chamada HTTP com timeout; por
// enquanto só existe a simulação abaixo.
type Cliente interface {
	Enviar(item *models.RequisicaoItem) error
}

// ClienteSimulado finge o envio com uma taxa fixa de sucesso.
type ClienteSimulado struct {
	TaxaSucesso float64
	rng         *rand.Rand
}

func NovoClienteSimulado(taxaSucesso float64, seed int64) *ClienteSimulado {
	return &ClienteSimulado{
		TaxaSucesso: taxaSucesso,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (c *ClienteSimulado) Enviar(item *models.RequisicaoItem) error {
	if c.rng.Float64() < c.TaxaSucesso {
		return nil
	}
	return ErrIndisponivel
}
