package limites

import (
	"errors"
	"testing"
	"time"

	"gestao-compras/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func abreBanco(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Fornecedor{},
		&models.Departamento{},
		&models.Contrato{},
		&models.ContratoLimiteHistorico{},
		&models.Requisicao{},
		&models.Conferencia{},
	))
	return db
}

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func criaContrato(t *testing.T, db *gorm.DB, limReq, limConf *int, limValor *decimal.Decimal) *models.Contrato {
	t.Helper()
	contrato := models.Contrato{
		Numero:             "CT-" + t.Name(),
		VigenciaInicio:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		VigenciaFim:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		LimiteRequisicoes:  limReq,
		LimiteConferencias: limConf,
		LimiteValorMensal:  limValor,
		Status:             models.ContratoAtivo,
	}
	require.NoError(t, db.Create(&contrato).Error)
	return &contrato
}

func criaRequisicao(t *testing.T, db *gorm.DB, contratoID uint, status models.RequisicaoStatus, valor string, data time.Time) {
	t.Helper()
	req := models.Requisicao{
		ContratoID: &contratoID,
		Descricao:  "material de expediente",
		Status:     status,
	}
	if status == models.RequisicaoConcretizada {
		v := decimal.RequireFromString(valor)
		req.ValorFinal = &v
		req.DataConcretizacao = &data
	}
	require.NoError(t, db.Create(&req).Error)
}

func TestUsoRequisicoes(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, intPtr(5), nil, nil)

	maio := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	criaRequisicao(t, db, contrato.ID, models.RequisicaoPendente, "", maio)
	criaRequisicao(t, db, contrato.ID, models.RequisicaoAutorizada, "", maio)
	criaRequisicao(t, db, contrato.ID, models.RequisicaoConcretizada, "100.00", maio)
	criaRequisicao(t, db, contrato.ID, models.RequisicaoCancelada, "", maio)

	uso, err := UsoRequisicoes(db, contrato)
	require.NoError(t, err)

	// pendente e cancelada ficam de fora
	assert.Equal(t, int64(2), uso.Quantidade)
	require.NotNil(t, uso.Limite)
	assert.Equal(t, 5, *uso.Limite)
	require.NotNil(t, uso.Restante)
	assert.Equal(t, 3, *uso.Restante)
}

func TestUsoRequisicoes_SemLimite(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, nil, nil, nil)

	uso, err := UsoRequisicoes(db, contrato)
	require.NoError(t, err)

	assert.Equal(t, int64(0), uso.Quantidade)
	assert.Nil(t, uso.Limite)
	assert.Nil(t, uso.Restante)

	pode, err := PodeAceitarRequisicao(db, contrato)
	require.NoError(t, err)
	assert.True(t, pode)
}

func TestPodeAceitarRequisicao_Fronteira(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, intPtr(2), nil, nil)
	maio := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	// count == L-1: ainda aceita
	criaRequisicao(t, db, contrato.ID, models.RequisicaoAutorizada, "", maio)
	pode, err := PodeAceitarRequisicao(db, contrato)
	require.NoError(t, err)
	assert.True(t, pode)

	// count == L: bloqueio rígido
	criaRequisicao(t, db, contrato.ID, models.RequisicaoAutorizada, "", maio)
	pode, err = PodeAceitarRequisicao(db, contrato)
	require.NoError(t, err)
	assert.False(t, pode)
}

func TestUsoConferencias(t *testing.T) {
	db := abreBanco(t)

	fornecedor := models.Fornecedor{RazaoSocial: "Alfa Distribuidora", Ativo: true}
	require.NoError(t, db.Create(&fornecedor).Error)

	contrato := criaContrato(t, db, nil, intPtr(1), nil)
	contrato.FornecedorID = &fornecedor.ID
	require.NoError(t, db.Save(contrato).Error)

	conf := models.Conferencia{
		FornecedorID:  fornecedor.ID,
		PeriodoInicio: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodoFim:    time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:        models.ConferenciaEmAndamento,
	}
	require.NoError(t, db.Create(&conf).Error)

	uso, err := UsoConferencias(db, contrato)
	require.NoError(t, err)
	assert.Equal(t, int64(1), uso.Quantidade)
	require.NotNil(t, uso.Restante)
	assert.Equal(t, 0, *uso.Restante)

	pode, err := PodeAceitarConferencia(db, contrato)
	require.NoError(t, err)
	assert.False(t, pode)
}

func TestUsoValorMensal(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, nil, nil, decPtr("1000.00"))

	criaRequisicao(t, db, contrato.ID, models.RequisicaoConcretizada, "700.00",
		time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC))
	criaRequisicao(t, db, contrato.ID, models.RequisicaoConcretizada, "500.00",
		time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	// fora do mês, não conta
	criaRequisicao(t, db, contrato.ID, models.RequisicaoConcretizada, "999.00",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	uso, err := UsoValorMensal(db, contrato, 2024, time.May)
	require.NoError(t, err)

	assert.True(t, uso.Usado.Equal(decimal.RequireFromString("1200.00")), "usado = %s", uso.Usado)
	assert.True(t, uso.Excedido)
	require.NotNil(t, uso.Restante)
	assert.True(t, uso.Restante.Equal(decimal.RequireFromString("-200.00")), "restante = %s", uso.Restante)

	// mês sem movimento
	uso, err = UsoValorMensal(db, contrato, 2024, time.July)
	require.NoError(t, err)
	assert.True(t, uso.Usado.IsZero())
	assert.False(t, uso.Excedido)
}

func TestUsoValorMensal_SemLimite(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, nil, nil, nil)

	criaRequisicao(t, db, contrato.ID, models.RequisicaoConcretizada, "5000.00",
		time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC))

	uso, err := UsoValorMensal(db, contrato, 2024, time.May)
	require.NoError(t, err)

	assert.Nil(t, uso.Limite)
	assert.Nil(t, uso.Restante)
	assert.False(t, uso.Excedido)
}

func TestMarcarExpirados(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, nil, nil, nil)

	require.NoError(t, MarcarExpirados(db, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))

	var atualizado models.Contrato
	require.NoError(t, db.First(&atualizado, contrato.ID).Error)
	assert.Equal(t, models.ContratoExpirado, atualizado.Status)
}

func TestAtualizarLimites_Historico(t *testing.T) {
	db := abreBanco(t)
	agora := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ilimitado para definido: delta nulo", func(t *testing.T) {
		contrato := criaContrato(t, db, nil, nil, nil)

		err := AtualizarLimites(db, contrato.ID, NovosLimites{Requisicoes: intPtr(5)}, 1, agora)
		require.NoError(t, err)

		var historico []models.ContratoLimiteHistorico
		require.NoError(t, db.Where("contrato_id = ?", contrato.ID).Find(&historico).Error)
		require.Len(t, historico, 1)

		h := historico[0]
		assert.Equal(t, CampoLimiteRequisicoes, h.Campo)
		assert.Nil(t, h.ValorAnterior)
		require.NotNil(t, h.ValorNovo)
		assert.True(t, h.ValorNovo.Equal(decimal.NewFromInt(5)))
		assert.Nil(t, h.Delta, "delta não é computável quando um dos lados era ilimitado")
	})

	t.Run("definido para definido: delta assinado", func(t *testing.T) {
		contrato := criaContrato(t, db, intPtr(5), nil, decPtr("1000.00"))

		err := AtualizarLimites(db, contrato.ID, NovosLimites{
			Requisicoes: intPtr(3),
			ValorMensal: decPtr("1500.00"),
		}, 2, agora)
		require.NoError(t, err)

		var historico []models.ContratoLimiteHistorico
		require.NoError(t, db.Where("contrato_id = ?", contrato.ID).Order("campo asc").Find(&historico).Error)
		require.Len(t, historico, 2)

		reqH := historico[0]
		assert.Equal(t, CampoLimiteRequisicoes, reqH.Campo)
		require.NotNil(t, reqH.Delta)
		assert.True(t, reqH.Delta.Equal(decimal.NewFromInt(-2)), "delta = %s", reqH.Delta)

		valorH := historico[1]
		assert.Equal(t, CampoLimiteValorMensal, valorH.Campo)
		require.NotNil(t, valorH.Delta)
		assert.True(t, valorH.Delta.Equal(decimal.RequireFromString("500.00")))
		assert.Equal(t, uint(2), valorH.UserID)
	})

	t.Run("definido para ilimitado: delta nulo", func(t *testing.T) {
		contrato := criaContrato(t, db, intPtr(4), nil, nil)

		err := AtualizarLimites(db, contrato.ID, NovosLimites{}, 1, agora)
		require.NoError(t, err)

		var historico []models.ContratoLimiteHistorico
		require.NoError(t, db.Where("contrato_id = ?", contrato.ID).Find(&historico).Error)
		require.Len(t, historico, 1)
		assert.Nil(t, historico[0].ValorNovo)
		assert.Nil(t, historico[0].Delta)

		var atualizado models.Contrato
		require.NoError(t, db.First(&atualizado, contrato.ID).Error)
		assert.Nil(t, atualizado.LimiteRequisicoes)
	})

	t.Run("nada mudou: nenhuma linha", func(t *testing.T) {
		contrato := criaContrato(t, db, intPtr(5), intPtr(2), nil)

		err := AtualizarLimites(db, contrato.ID, NovosLimites{
			Requisicoes:  intPtr(5),
			Conferencias: intPtr(2),
		}, 1, agora)
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.ContratoLimiteHistorico{}).
			Where("contrato_id = ?", contrato.ID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("teto negativo é recusado", func(t *testing.T) {
		contrato := criaContrato(t, db, nil, nil, nil)

		err := AtualizarLimites(db, contrato.ID, NovosLimites{Requisicoes: intPtr(-1)}, 1, agora)
		assert.True(t, errors.Is(err, ErrValidacao))

		err = AtualizarLimites(db, contrato.ID, NovosLimites{ValorMensal: decPtr("-10.00")}, 1, agora)
		assert.True(t, errors.Is(err, ErrValidacao))
	})
}

func TestPodeAutorizarRequisicao(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, intPtr(2), nil, nil)

	var pendentes []models.Requisicao
	for i := 0; i < 5; i++ {
		req := models.Requisicao{
			ContratoID: &contrato.ID,
			Descricao:  "material de expediente",
			Status:     models.RequisicaoPendente,
		}
		require.NoError(t, db.Create(&req).Error)
		pendentes = append(pendentes, req)
	}

	// a criação não consome cota, então todas entram; a autorização
	// só deixa passar até o teto
	autorizadas := 0
	for i := range pendentes {
		pode, err := PodeAutorizarRequisicao(db, &pendentes[i])
		require.NoError(t, err)
		if !pode {
			continue
		}
		pendentes[i].Status = models.RequisicaoAutorizada
		require.NoError(t, db.Save(&pendentes[i]).Error)
		autorizadas++
	}
	assert.Equal(t, 2, autorizadas)

	uso, err := UsoRequisicoes(db, contrato)
	require.NoError(t, err)
	assert.Equal(t, int64(2), uso.Quantidade, "autorizadas nunca podem passar do teto")
}

func TestPodeAutorizarRequisicao_SemContrato(t *testing.T) {
	db := abreBanco(t)

	req := models.Requisicao{Descricao: "compra avulsa", Status: models.RequisicaoPendente}
	require.NoError(t, db.Create(&req).Error)

	pode, err := PodeAutorizarRequisicao(db, &req)
	require.NoError(t, err)
	assert.True(t, pode)
}

func TestExcedeValorMensal(t *testing.T) {
	db := abreBanco(t)
	contrato := criaContrato(t, db, nil, nil, decPtr("1000.00"))

	marco := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	criaRequisicao(t, db, contrato.ID, models.RequisicaoConcretizada, "700.00", marco)

	t.Run("concretização dentro do teto", func(t *testing.T) {
		excede, err := ExcedeValorMensal(db, contrato, 2024, time.March, decimal.Zero, decimal.RequireFromString("300.00"))
		require.NoError(t, err)
		assert.False(t, excede, "700 + 300 fecha exatamente no teto")
	})

	t.Run("concretização acima do teto", func(t *testing.T) {
		excede, err := ExcedeValorMensal(db, contrato, 2024, time.March, decimal.Zero, decimal.RequireFromString("300.01"))
		require.NoError(t, err)
		assert.True(t, excede)
	})

	criaRequisicao(t, db, contrato.ID, models.RequisicaoConcretizada, "500.00", marco)

	t.Run("edição para baixo desfaz o estouro", func(t *testing.T) {
		// mês com 1200; trocar a de 500 por 250 volta para 950
		excede, err := ExcedeValorMensal(db, contrato, 2024, time.March,
			decimal.RequireFromString("500.00"), decimal.RequireFromString("250.00"))
		require.NoError(t, err)
		assert.False(t, excede)
	})

	t.Run("edição para cima estoura", func(t *testing.T) {
		excede, err := ExcedeValorMensal(db, contrato, 2024, time.March,
			decimal.RequireFromString("500.00"), decimal.RequireFromString("600.00"))
		require.NoError(t, err)
		assert.True(t, excede)
	})

	t.Run("sem teto nunca excede", func(t *testing.T) {
		aberto := criaContrato(t, db, nil, nil, nil)
		excede, err := ExcedeValorMensal(db, aberto, 2024, time.March, decimal.Zero, decimal.RequireFromString("999999.00"))
		require.NoError(t, err)
		assert.False(t, excede)
	})
}
