package conferencias

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

var (
	inicioJan = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fimJan    = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
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
		&models.Requisicao{},
		&models.Conferencia{},
		&models.PedidoManual{},
	))
	return db
}

func criaFornecedor(t *testing.T, db *gorm.DB) *models.Fornecedor {
	t.Helper()
	fornecedor := models.Fornecedor{RazaoSocial: "Beta Comércio Ltda", Ativo: true}
	require.NoError(t, db.Create(&fornecedor).Error)
	return &fornecedor
}

func criaRequisicaoConcretizada(t *testing.T, db *gorm.DB, fornecedorID uint, valor string, data time.Time) *models.Requisicao {
	t.Helper()
	v := decimal.RequireFromString(valor)
	req := models.Requisicao{
		FornecedorID:      &fornecedorID,
		Descricao:         "compra de material",
		Status:            models.RequisicaoConcretizada,
		ValorFinal:        &v,
		DataConcretizacao: &data,
	}
	require.NoError(t, db.Create(&req).Error)
	return &req
}

func pedidoValido(valor string) PedidoManualInput {
	return PedidoManualInput{
		Descricao:     "pedido avulso",
		Valor:         decimal.RequireFromString(valor),
		Data:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Justificativa: "compra emergencial sem requisição",
	}
}

func recarrega(t *testing.T, db *gorm.DB, id uint) models.Conferencia {
	t.Helper()
	var conf models.Conferencia
	require.NoError(t, db.First(&conf, id).Error)
	return conf
}

// invariante central: total geral é sempre a soma dos outros dois
func assertTotais(t *testing.T, conf models.Conferencia, requisicoes, manuais string) {
	t.Helper()
	assert.True(t, conf.TotalRequisicoes.Equal(decimal.RequireFromString(requisicoes)),
		"total requisições = %s, esperado %s", conf.TotalRequisicoes, requisicoes)
	assert.True(t, conf.TotalPedidosManuais.Equal(decimal.RequireFromString(manuais)),
		"total manuais = %s, esperado %s", conf.TotalPedidosManuais, manuais)
	assert.True(t, conf.TotalGeral.Equal(conf.TotalRequisicoes.Add(conf.TotalPedidosManuais)),
		"total geral = %s", conf.TotalGeral)
}

func TestCriar(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)

	criaRequisicaoConcretizada(t, db, fornecedor.ID, "100.00", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	criaRequisicaoConcretizada(t, db, fornecedor.ID, "200.00", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	criaRequisicaoConcretizada(t, db, fornecedor.ID, "300.00", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	// fora do período, não entra
	criaRequisicaoConcretizada(t, db, fornecedor.ID, "999.00", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	assert.Equal(t, models.ConferenciaEmAndamento, conf.Status)
	assertTotais(t, *conf, "600.00", "0")
}

func TestCriar_ReaproveitaExistente(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)

	primeira, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	segunda, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	assert.Equal(t, primeira.ID, segunda.ID)

	var count int64
	require.NoError(t, db.Model(&models.Conferencia{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCriar_PeriodoInvertido(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)

	_, err := Criar(db, fornecedor.ID, fimJan, inicioJan)
	assert.True(t, errors.Is(err, ErrValidacao))
}

func TestAdicionarPedidoManual(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)
	criaRequisicaoConcretizada(t, db, fornecedor.ID, "600.00", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	_, err = AdicionarPedidoManual(db, conf.ID, pedidoValido("50.00"))
	require.NoError(t, err)

	atual := recarrega(t, db, conf.ID)
	assertTotais(t, atual, "600.00", "50.00")
}

func TestAdicionarPedidoManual_Validacao(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)
	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	t.Run("descrição vazia", func(t *testing.T) {
		input := pedidoValido("10.00")
		input.Descricao = "   "
		_, err := AdicionarPedidoManual(db, conf.ID, input)
		assert.True(t, errors.Is(err, ErrValidacao))
	})

	t.Run("valor não positivo", func(t *testing.T) {
		input := pedidoValido("10.00")
		input.Valor = decimal.Zero
		_, err := AdicionarPedidoManual(db, conf.ID, input)
		assert.True(t, errors.Is(err, ErrValidacao))

		input.Valor = decimal.RequireFromString("-5.00")
		_, err = AdicionarPedidoManual(db, conf.ID, input)
		assert.True(t, errors.Is(err, ErrValidacao))
	})

	t.Run("data zerada", func(t *testing.T) {
		input := pedidoValido("10.00")
		input.Data = time.Time{}
		_, err := AdicionarPedidoManual(db, conf.ID, input)
		assert.True(t, errors.Is(err, ErrValidacao))
	})

	t.Run("conferência inexistente", func(t *testing.T) {
		_, err := AdicionarPedidoManual(db, 9999, pedidoValido("10.00"))
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	})
}

func TestAdicionarPedidoManual_ForaDoPeriodo(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)
	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	t.Run("depois do fim", func(t *testing.T) {
		input := pedidoValido("40.00")
		input.Data = time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
		_, err := AdicionarPedidoManual(db, conf.ID, input)
		assert.True(t, errors.Is(err, ErrValidacao))
	})

	t.Run("antes do início", func(t *testing.T) {
		input := pedidoValido("40.00")
		input.Data = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
		_, err := AdicionarPedidoManual(db, conf.ID, input)
		assert.True(t, errors.Is(err, ErrValidacao))
	})

	// lançamento recusado não mexe nos totais
	atual := recarrega(t, db, conf.ID)
	assert.True(t, atual.TotalPedidosManuais.IsZero())
	assert.True(t, atual.TotalGeral.Equal(atual.TotalRequisicoes))

	t.Run("exatamente nas bordas", func(t *testing.T) {
		input := pedidoValido("10.00")
		input.Data = inicioJan
		_, err := AdicionarPedidoManual(db, conf.ID, input)
		assert.NoError(t, err)

		input = pedidoValido("10.00")
		input.Data = fimJan
		_, err = AdicionarPedidoManual(db, conf.ID, input)
		assert.NoError(t, err)
	})
}

func TestAdicionarRemover_IdaEVolta(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)
	criaRequisicaoConcretizada(t, db, fornecedor.ID, "300.00", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)
	antes := recarrega(t, db, conf.ID)

	pedido, err := AdicionarPedidoManual(db, conf.ID, pedidoValido("75.50"))
	require.NoError(t, err)

	meio := recarrega(t, db, conf.ID)
	assertTotais(t, meio, "300.00", "75.50")

	require.NoError(t, RemoverPedidoManual(db, conf.ID, pedido.ID))

	depois := recarrega(t, db, conf.ID)
	assert.True(t, depois.TotalGeral.Equal(antes.TotalGeral), "totais devem voltar ao valor pré-lançamento")
	assert.True(t, depois.TotalPedidosManuais.IsZero())
}

func TestRemoverPedidoManual_NaoEncontrado(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)
	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	err = RemoverPedidoManual(db, conf.ID, 12345)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRecalcularTotalRequisicoes(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)
	req := criaRequisicaoConcretizada(t, db, fornecedor.ID, "100.00", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)
	assertTotais(t, recarrega(t, db, conf.ID), "100.00", "0")

	// valor da requisição editado com a conferência aberta
	novo := decimal.RequireFromString("180.00")
	req.ValorFinal = &novo
	require.NoError(t, db.Save(req).Error)

	require.NoError(t, RecalcularTotalRequisicoes(db, conf.ID))
	assertTotais(t, recarrega(t, db, conf.ID), "180.00", "0")
}

func TestRecalcularAbertas(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)

	confJan, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)

	confFev, err := Criar(db, fornecedor.ID,
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	dataJan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	criaRequisicaoConcretizada(t, db, fornecedor.ID, "250.00", dataJan)

	require.NoError(t, RecalcularAbertas(db, fornecedor.ID, dataJan))

	// só a conferência cujo período cobre a data muda
	assertTotais(t, recarrega(t, db, confJan.ID), "250.00", "0")
	assertTotais(t, recarrega(t, db, confFev.ID), "0", "0")
}

func TestFinalizar(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)
	criaRequisicaoConcretizada(t, db, fornecedor.ID, "600.00", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)
	_, err = AdicionarPedidoManual(db, conf.ID, pedidoValido("50.00"))
	require.NoError(t, err)

	momento := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, Finalizar(db, conf.ID, 7, momento))

	finalizada := recarrega(t, db, conf.ID)
	assert.Equal(t, models.ConferenciaFinalizada, finalizada.Status)
	require.NotNil(t, finalizada.FinalizadaEm)
	assert.True(t, finalizada.FinalizadaEm.Equal(momento))
	require.NotNil(t, finalizada.FinalizadaPorID)
	assert.Equal(t, uint(7), *finalizada.FinalizadaPorID)
	assertTotais(t, finalizada, "600.00", "50.00")

	// segunda finalização falha e não mexe em nada
	err = Finalizar(db, conf.ID, 99, momento.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrEstadoInvalido))

	depois := recarrega(t, db, conf.ID)
	assert.True(t, depois.FinalizadaEm.Equal(momento), "carimbo de finalização não pode mudar")
	require.NotNil(t, depois.FinalizadaPorID)
	assert.Equal(t, uint(7), *depois.FinalizadaPorID)
	assert.True(t, depois.TotalGeral.Equal(finalizada.TotalGeral))
}

func TestFinalizada_Imutavel(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)

	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)
	pedido, err := AdicionarPedidoManual(db, conf.ID, pedidoValido("30.00"))
	require.NoError(t, err)

	require.NoError(t, Finalizar(db, conf.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	antes := recarrega(t, db, conf.ID)

	t.Run("adicionar pedido manual", func(t *testing.T) {
		_, err := AdicionarPedidoManual(db, conf.ID, pedidoValido("10.00"))
		assert.True(t, errors.Is(err, ErrEstadoInvalido))
	})

	t.Run("remover pedido manual", func(t *testing.T) {
		err := RemoverPedidoManual(db, conf.ID, pedido.ID)
		assert.True(t, errors.Is(err, ErrEstadoInvalido))
	})

	t.Run("recalcular", func(t *testing.T) {
		err := RecalcularTotalRequisicoes(db, conf.ID)
		assert.True(t, errors.Is(err, ErrEstadoInvalido))
	})

	t.Run("excluir", func(t *testing.T) {
		err := Excluir(db, conf.ID)
		assert.True(t, errors.Is(err, ErrEstadoInvalido))
	})

	depois := recarrega(t, db, conf.ID)
	assert.True(t, depois.TotalGeral.Equal(antes.TotalGeral), "totais intactos após tentativas rejeitadas")
}

func TestExcluir(t *testing.T) {
	db := abreBanco(t)
	fornecedor := criaFornecedor(t, db)

	conf, err := Criar(db, fornecedor.ID, inicioJan, fimJan)
	require.NoError(t, err)
	_, err = AdicionarPedidoManual(db, conf.ID, pedidoValido("20.00"))
	require.NoError(t, err)

	require.NoError(t, Excluir(db, conf.ID))

	err = db.First(&models.Conferencia{}, conf.ID).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// pedidos manuais caem em cascata
	var count int64
	require.NoError(t, db.Model(&models.PedidoManual{}).
		Where("conferencia_id = ?", conf.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
