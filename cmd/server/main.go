package main

import (
	"fmt"
	"log"

	"gestao-compras/internal/config"
	"gestao-compras/internal/database"
	"gestao-compras/internal/server"
)

func main() {
	cfg := config.Load()
	database.Init(cfg.DBDSN)

	r := server.NewRouter(cfg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("gestao-compras listening on %s (monthly ceiling hard block: %t)", addr, cfg.LimiteValorMensalBloqueia)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
