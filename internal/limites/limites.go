package limites

import (
	"fmt"
	"time"

	"gestao-compras/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Requisições pendentes e canceladas não consomem o teto.
var statusContam = []models.RequisicaoStatus{
	models.RequisicaoAutorizada,
	models.RequisicaoConcretizada,
}

// Uso descreve o consumo de um teto de contagem.
// Limite e Restante nulos indicam teto ilimitado.
type Uso struct {
	Quantidade int64
	Limite     *int
	Restante   *int
}

// UsoValor descreve o consumo do teto de valor mensal.
// Restante pode ficar negativo quando o teto já foi estourado.
type UsoValor struct {
	Usado    decimal.Decimal
	Limite   *decimal.Decimal
	Restante *decimal.Decimal
	Excedido bool
}

// UsoRequisicoes conta as requisições autorizadas/concretizadas do contrato.
func UsoRequisicoes(db *gorm.DB, contrato *models.Contrato) (Uso, error) {
	var count int64
	err := db.Model(&models.Requisicao{}).
		Where("contrato_id = ? AND status IN ?", contrato.ID, statusContam).
		Count(&count).Error
	if err != nil {
		return Uso{}, fmt.Errorf("contar requisições do contrato %d: %w", contrato.ID, err)
	}
	return montaUso(count, contrato.LimiteRequisicoes), nil
}

// UsoConferencias conta as conferências abertas dentro da vigência do
// contrato. Contrato com fornecedor conta só as conferências dele; contrato
// geral conta todas do período.
func UsoConferencias(db *gorm.DB, contrato *models.Contrato) (Uso, error) {
	q := db.Model(&models.Conferencia{}).
		Where("periodo_inicio >= ? AND periodo_inicio <= ?", contrato.VigenciaInicio, contrato.VigenciaFim)
	if contrato.FornecedorID != nil {
		q = q.Where("fornecedor_id = ?", *contrato.FornecedorID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return Uso{}, fmt.Errorf("contar conferências do contrato %d: %w", contrato.ID, err)
	}
	return montaUso(count, contrato.LimiteConferencias), nil
}

// UsoValorMensal soma o valor das requisições concretizadas do contrato no
// mês informado e compara com o teto mensal.
func UsoValorMensal(db *gorm.DB, contrato *models.Contrato, ano int, mes time.Month) (UsoValor, error) {
	inicio := time.Date(ano, mes, 1, 0, 0, 0, 0, time.UTC)
	fim := inicio.AddDate(0, 1, 0)

	var usado decimal.Decimal
	err := db.Model(&models.Requisicao{}).
		Where("contrato_id = ? AND status = ? AND data_concretizacao >= ? AND data_concretizacao < ?",
			contrato.ID, models.RequisicaoConcretizada, inicio, fim).
		Select("COALESCE(SUM(valor_final), 0)").
		Scan(&usado).Error
	if err != nil {
		return UsoValor{}, fmt.Errorf("somar valor mensal do contrato %d: %w", contrato.ID, err)
	}

	uso := UsoValor{Usado: usado, Limite: contrato.LimiteValorMensal}
	if contrato.LimiteValorMensal != nil {
		restante := contrato.LimiteValorMensal.Sub(usado)
		uso.Restante = &restante
		uso.Excedido = usado.GreaterThan(*contrato.LimiteValorMensal)
	}
	return uso, nil
}

// PodeAceitarRequisicao aplica o bloqueio rígido: com o teto de requisições
// atingido, nenhuma requisição nova entra no contrato.
func PodeAceitarRequisicao(db *gorm.DB, contrato *models.Contrato) (bool, error) {
	if contrato.LimiteRequisicoes == nil {
		return true, nil
	}
	uso, err := UsoRequisicoes(db, contrato)
	if err != nil {
		return false, err
	}
	return uso.Quantidade < int64(*contrato.LimiteRequisicoes), nil
}

// PodeAutorizarRequisicao repete a checagem do teto na transição
// pendente -> autorizada. Pendente não consome cota, então a verificação
// feita na criação não basta: é aqui que a autorização esbarra no teto.
// Requisição sem contrato nunca é bloqueada.
func PodeAutorizarRequisicao(db *gorm.DB, requisicao *models.Requisicao) (bool, error) {
	if requisicao.ContratoID == nil {
		return true, nil
	}
	var contrato models.Contrato
	if err := db.First(&contrato, *requisicao.ContratoID).Error; err != nil {
		return false, err
	}
	return PodeAceitarRequisicao(db, &contrato)
}

// ExcedeValorMensal responde se fechar o mês com valorNovo no lugar de
// valorAtual estoura o teto mensal do contrato. valorAtual é o que a
// requisição já contribui para a soma do mês (zero quando ainda não foi
// concretizada).
func ExcedeValorMensal(db *gorm.DB, contrato *models.Contrato, ano int, mes time.Month, valorAtual, valorNovo decimal.Decimal) (bool, error) {
	if contrato.LimiteValorMensal == nil {
		return false, nil
	}
	uso, err := UsoValorMensal(db, contrato, ano, mes)
	if err != nil {
		return false, err
	}
	usado := uso.Usado.Sub(valorAtual).Add(valorNovo)
	return usado.GreaterThan(*contrato.LimiteValorMensal), nil
}

// PodeAceitarConferencia aplica o mesmo bloqueio rígido para conferências.
func PodeAceitarConferencia(db *gorm.DB, contrato *models.Contrato) (bool, error) {
	if contrato.LimiteConferencias == nil {
		return true, nil
	}
	uso, err := UsoConferencias(db, contrato)
	if err != nil {
		return false, err
	}
	return uso.Quantidade < int64(*contrato.LimiteConferencias), nil
}

// MarcarExpirados passa para "expirado" contratos ativos cuja vigência já
// terminou. Chamado na listagem de contratos, não por timer.
func MarcarExpirados(db *gorm.DB, agora time.Time) error {
	return db.Model(&models.Contrato{}).
		Where("status = ? AND vigencia_fim < ?", models.ContratoAtivo, agora).
		Update("status", models.ContratoExpirado).Error
}

func montaUso(count int64, limite *int) Uso {
	uso := Uso{Quantidade: count, Limite: limite}
	if limite != nil {
		restante := *limite - int(count)
		uso.Restante = &restante
	}
	return uso
}
