package conferencias

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gestao-compras/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrEstadoInvalido indica operação sobre conferência já finalizada.
	ErrEstadoInvalido = errors.New("conferência finalizada não pode ser alterada")
	// ErrValidacao indica entrada inválida num pedido manual ou no período.
	ErrValidacao = errors.New("dados inválidos")
)

// PedidoManualInput reúne os campos de um lançamento manual.
type PedidoManualInput struct {
	Descricao     string
	Valor         decimal.Decimal
	NumeroPedido  string
	Data          time.Time
	Justificativa string
}

// Criar localiza ou cria a conferência do fornecedor para o período.
// O total de requisições parte do que já está concretizado no período;
// o de pedidos manuais começa em zero.
func Criar(db *gorm.DB, fornecedorID uint, inicio, fim time.Time) (*models.Conferencia, error) {
	if fim.Before(inicio) {
		return nil, fmt.Errorf("%w: período invertido", ErrValidacao)
	}

	var conf models.Conferencia
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("fornecedor_id = ? AND periodo_inicio = ? AND periodo_fim = ?",
			fornecedorID, inicio, fim).
			First(&conf).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		total, err := somaRequisicoes(tx, fornecedorID, inicio, fim)
		if err != nil {
			return err
		}

		conf = models.Conferencia{
			FornecedorID:        fornecedorID,
			PeriodoInicio:       inicio,
			PeriodoFim:          fim,
			TotalRequisicoes:    total,
			TotalPedidosManuais: decimal.Zero,
			TotalGeral:          total,
			Status:              models.ConferenciaEmAndamento,
		}
		return tx.Create(&conf).Error
	})
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

// AdicionarPedidoManual cria o lançamento e recalcula os totais na mesma
// transação. Falha com ErrEstadoInvalido se a conferência não está em
// andamento.
func AdicionarPedidoManual(db *gorm.DB, conferenciaID uint, input PedidoManualInput) (*models.PedidoManual, error) {
	input.Descricao = strings.TrimSpace(input.Descricao)
	if input.Descricao == "" {
		return nil, fmt.Errorf("%w: descrição obrigatória", ErrValidacao)
	}
	if !input.Valor.IsPositive() {
		return nil, fmt.Errorf("%w: valor deve ser positivo", ErrValidacao)
	}
	if input.Data.IsZero() {
		return nil, fmt.Errorf("%w: data obrigatória", ErrValidacao)
	}

	var pedido models.PedidoManual
	err := db.Transaction(func(tx *gorm.DB) error {
		conf, err := buscaEditavel(tx, conferenciaID)
		if err != nil {
			return err
		}

		// o lançamento precisa cair dentro do período conferido,
		// limites inclusos
		if input.Data.Before(conf.PeriodoInicio) || input.Data.After(conf.PeriodoFim) {
			return fmt.Errorf("%w: data fora do período da conferência", ErrValidacao)
		}

		pedido = models.PedidoManual{
			ConferenciaID: conf.ID,
			Descricao:     input.Descricao,
			Valor:         input.Valor,
			NumeroPedido:  strings.TrimSpace(input.NumeroPedido),
			Data:          input.Data,
			Justificativa: strings.TrimSpace(input.Justificativa),
		}
		if err := tx.Create(&pedido).Error; err != nil {
			return err
		}
		return recalculaTotais(tx, conf.ID)
	})
	if err != nil {
		return nil, err
	}
	return &pedido, nil
}

// RemoverPedidoManual apaga o lançamento e recalcula os totais.
// Mesmo gate de estado da adição.
func RemoverPedidoManual(db *gorm.DB, conferenciaID, pedidoID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		conf, err := buscaEditavel(tx, conferenciaID)
		if err != nil {
			return err
		}

		var pedido models.PedidoManual
		if err := tx.Where("conferencia_id = ?", conf.ID).First(&pedido, pedidoID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&pedido).Error; err != nil {
			return err
		}
		return recalculaTotais(tx, conf.ID)
	})
}

// RecalcularTotalRequisicoes re-soma as requisições concretizadas do
// período. Chamado sempre que o valor de uma requisição muda enquanto uma
// conferência do período está aberta; é assim que a edição feita pela tela
// da conferência se propaga.
func RecalcularTotalRequisicoes(db *gorm.DB, conferenciaID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if _, err := buscaEditavel(tx, conferenciaID); err != nil {
			return err
		}
		return recalculaTotais(tx, conferenciaID)
	})
}

// RecalcularAbertas atualiza toda conferência em andamento do fornecedor
// cujo período cobre a data informada.
func RecalcularAbertas(db *gorm.DB, fornecedorID uint, data time.Time) error {
	var confs []models.Conferencia
	err := db.Where("fornecedor_id = ? AND status = ? AND periodo_inicio <= ? AND periodo_fim >= ?",
		fornecedorID, models.ConferenciaEmAndamento, data, data).
		Find(&confs).Error
	if err != nil {
		return err
	}

	for _, conf := range confs {
		if err := RecalcularTotalRequisicoes(db, conf.ID); err != nil {
			return err
		}
	}
	return nil
}

// Finalizar congela a conferência: em_andamento -> finalizada, sem volta.
// Segunda chamada falha com ErrEstadoInvalido e não altera totais nem
// carimbo de finalização.
func Finalizar(db *gorm.DB, conferenciaID uint, userID uint, agora time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var conf models.Conferencia
		if err := tx.First(&conf, conferenciaID).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Conferencia{}).
			Where("id = ? AND status = ?", conf.ID, models.ConferenciaEmAndamento).
			Updates(map[string]interface{}{
				"status":            models.ConferenciaFinalizada,
				"finalizada_em":     agora,
				"finalizada_por_id": userID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEstadoInvalido
		}
		return nil
	})
}

// Excluir remove a conferência e os pedidos manuais dela (cascata).
// Permitido apenas em andamento.
func Excluir(db *gorm.DB, conferenciaID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		conf, err := buscaEditavel(tx, conferenciaID)
		if err != nil {
			return err
		}

		if err := tx.Where("conferencia_id = ?", conf.ID).Delete(&models.PedidoManual{}).Error; err != nil {
			return err
		}
		return tx.Delete(conf).Error
	})
}

func buscaEditavel(tx *gorm.DB, id uint) (*models.Conferencia, error) {
	var conf models.Conferencia
	if err := tx.First(&conf, id).Error; err != nil {
		return nil, err
	}
	if conf.Status != models.ConferenciaEmAndamento {
		return nil, ErrEstadoInvalido
	}
	return &conf, nil
}

// recalculaTotais reescreve os três totais a partir do banco. O WHERE por
// status funciona como trava otimista: se a conferência foi finalizada no
// meio do caminho por outra requisição, nada é gravado e a transação falha.
func recalculaTotais(tx *gorm.DB, conferenciaID uint) error {
	var conf models.Conferencia
	if err := tx.First(&conf, conferenciaID).Error; err != nil {
		return err
	}

	totalReq, err := somaRequisicoes(tx, conf.FornecedorID, conf.PeriodoInicio, conf.PeriodoFim)
	if err != nil {
		return err
	}

	var totalManuais decimal.Decimal
	err = tx.Model(&models.PedidoManual{}).
		Where("conferencia_id = ?", conf.ID).
		Select("COALESCE(SUM(valor), 0)").
		Scan(&totalManuais).Error
	if err != nil {
		return fmt.Errorf("somar pedidos manuais da conferência %d: %w", conf.ID, err)
	}

	res := tx.Model(&models.Conferencia{}).
		Where("id = ? AND status = ?", conf.ID, models.ConferenciaEmAndamento).
		Updates(map[string]interface{}{
			"total_requisicoes":     totalReq,
			"total_pedidos_manuais": totalManuais,
			"total_geral":           totalReq.Add(totalManuais),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEstadoInvalido
	}
	return nil
}

func somaRequisicoes(tx *gorm.DB, fornecedorID uint, inicio, fim time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.Model(&models.Requisicao{}).
		Where("fornecedor_id = ? AND status = ? AND data_concretizacao >= ? AND data_concretizacao <= ?",
			fornecedorID, models.RequisicaoConcretizada, inicio, fim).
		Select("COALESCE(SUM(valor_final), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("somar requisições do fornecedor %d: %w", fornecedorID, err)
	}
	return total, nil
}
