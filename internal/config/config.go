package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	// Política do teto mensal de valor dos contratos. Por padrão o teto é
	// brando: a concretização acontece e a requisição fica marcada como
	// excedente. Com true, concretizar acima do teto é recusado.
	LimiteValorMensalBloqueia bool

	// Integração com o patrimônio.
	PatrimonioValorMinimo decimal.Decimal // valor mínimo do item para integrar
	PatrimonioTaxaSucesso float64         // taxa de sucesso do cliente simulado
	PatrimonioLote        int             // máximo de registros por reprocessamento
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		LimiteValorMensalBloqueia: os.Getenv("LIMITE_VALOR_MENSAL_BLOQUEIA") == "true",

		PatrimonioValorMinimo: decimal.NewFromInt(1000),
		PatrimonioTaxaSucesso: 0.7,
		PatrimonioLote:        20,
	}

	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}

	if v := os.Getenv("PATRIMONIO_VALOR_MINIMO"); v != "" {
		min, err := decimal.NewFromString(v)
		if err != nil {
			log.Fatalf("invalid PATRIMONIO_VALOR_MINIMO: %v", err)
		}
		cfg.PatrimonioValorMinimo = min
	}
	if v := os.Getenv("PATRIMONIO_TAXA_SUCESSO"); v != "" {
		taxa, err := strconv.ParseFloat(v, 64)
		if err != nil || taxa < 0 || taxa > 1 {
			log.Fatalf("invalid PATRIMONIO_TAXA_SUCESSO: %q", v)
		}
		cfg.PatrimonioTaxaSucesso = taxa
	}
	if v := os.Getenv("PATRIMONIO_LOTE"); v != "" {
		lote, err := strconv.Atoi(v)
		if err != nil || lote <= 0 {
			log.Fatalf("invalid PATRIMONIO_LOTE: %q", v)
		}
		cfg.PatrimonioLote = lote
	}

	return cfg
}
