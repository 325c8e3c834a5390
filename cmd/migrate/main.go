package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"almoxarifado/config"
	"almoxarifado/internal/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Aviso: arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("goose: %v", err)
	}

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", cfg.MigrationsDir, "diretório com os arquivos de migração")
	flag.Parse()

	db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		log.Fatalf("goose: falha ao conectar ao DB: %v\n", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: falha ao fechar o DB: %v\n", err)
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose: %v", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	if err := goose.RunContext(context.Background(), command, db.DB, migrationsDir, arguments[1:]...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s success\n", command)
}
