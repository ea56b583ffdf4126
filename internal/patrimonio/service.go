package patrimonio

import (
	"errors"
	"time"

	"gestao-compras/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNaoElegivel indica que o item não atende aos critérios de integração.
	ErrNaoElegivel = errors.New("item não elegível para o patrimônio")
	// ErrEstadoInvalido indica integração já concluída ou em processamento.
	ErrEstadoInvalido = errors.New("integração não está pendente")
)

// Categorias de item aceitas pelo patrimônio.
var categoriasPermitidas = map[string]bool{
	"mobiliario":  true,
	"equipamento": true,
	"veiculo":     true,
	"informatica": true,
}

type Service struct {
	Cliente     Cliente
	ValorMinimo decimal.Decimal
	Lote        int // máximo de registros por chamada de ProcessarPendentes
}

// DeveIntegrar decide se o item entra no patrimônio: bem permanente, valor
// total no mínimo exigido e categoria aceita.
func (s *Service) DeveIntegrar(item *models.RequisicaoItem) bool {
	return item.Permanente &&
		item.ValorTotal.GreaterThanOrEqual(s.ValorMinimo) &&
		categoriasPermitidas[item.Categoria]
}

// Enviar registra a integração como pendente e devolve o protocolo.
// O envio em si acontece depois, via Processar/ProcessarPendentes.
func (s *Service) Enviar(db *gorm.DB, item *models.RequisicaoItem) (string, error) {
	if !s.DeveIntegrar(item) {
		return "", ErrNaoElegivel
	}

	integ := models.IntegracaoPatrimonio{
		Protocolo:        uuid.NewString(),
		RequisicaoItemID: item.ID,
		Status:           models.IntegracaoPendente,
	}
	if err := db.Create(&integ).Error; err != nil {
		return "", err
	}
	return integ.Protocolo, nil
}

// Status devolve a situação da integração pelo protocolo.
func (s *Service) Status(db *gorm.DB, protocolo string) (models.IntegracaoStatus, error) {
	var integ models.IntegracaoPatrimonio
	if err := db.Where("protocolo = ?", protocolo).First(&integ).Error; err != nil {
		return "", err
	}
	return integ.Status, nil
}

// Processar tenta enviar uma integração pendente ou com erro:
// pendente/erro -> integrando -> integrado | erro.
func (s *Service) Processar(db *gorm.DB, integ *models.IntegracaoPatrimonio, agora time.Time) error {
	if integ.Status != models.IntegracaoPendente && integ.Status != models.IntegracaoErro {
		return ErrEstadoInvalido
	}

	var item models.RequisicaoItem
	if err := db.First(&item, integ.RequisicaoItemID).Error; err != nil {
		return err
	}

	integ.Status = models.IntegracaoIntegrando
	if err := db.Save(integ).Error; err != nil {
		return err
	}

	integ.Tentativas++
	integ.ProcessadoEm = &agora
	if err := s.Cliente.Enviar(&item); err != nil {
		integ.Status = models.IntegracaoErro
		integ.UltimoErro = err.Error()
	} else {
		integ.Status = models.IntegracaoIntegrada
		integ.UltimoErro = ""
	}
	return db.Save(integ).Error
}

// ProcessarPendentes reprocessa até Lote registros pendentes ou com erro,
// dos mais antigos para os mais novos. Invocado sob demanda por um
// operador; não existe timer nem retry automático.
func (s *Service) ProcessarPendentes(db *gorm.DB, agora time.Time) (int, error) {
	var pendentes []models.IntegracaoPatrimonio
	err := db.Where("status IN ?", []models.IntegracaoStatus{models.IntegracaoPendente, models.IntegracaoErro}).
		Order("created_at asc").
		Limit(s.Lote).
		Find(&pendentes).Error
	if err != nil {
		return 0, err
	}

	processadas := 0
	for i := range pendentes {
		if err := s.Processar(db, &pendentes[i], agora); err != nil {
			return processadas, err
		}
		processadas++
	}
	return processadas, nil
}
