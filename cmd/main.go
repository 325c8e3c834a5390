package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Nossos pacotes de infraestrutura e utilitários
	"almoxarifado/config"
	"almoxarifado/internal/pkg/cache"
	"almoxarifado/internal/pkg/database"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/pkg/metrics"
	"almoxarifado/internal/pkg/token"
	"almoxarifado/internal/validation"

	// Camadas de domínio para Injeção de Dependências
	"almoxarifado/internal/api/item"
	"almoxarifado/internal/api/router"
	"almoxarifado/internal/api/supplier"
	"almoxarifado/internal/repository/itemrepo"
	"almoxarifado/internal/repository/supplierrepo"
	"almoxarifado/internal/service/itemservice"
	"almoxarifado/internal/service/supplierservice"
)

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// Sem .env seguimos com o ambiente do sistema (ex: Docker).
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	appLog := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	defer func() {
		if s, ok := appLog.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()
	appLog.Info("Configurações carregadas.", map[string]interface{}{
		"env":                  cfg.Environment,
		"supplier_delete_mode": string(cfg.DeleteMode()),
		"auth_enabled":         cfg.AuthEnabled,
		"rate_limit_enabled":   cfg.RateLimitEnabled,
	})

	// 1. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		ConnMaxIdleTime: cfg.DBConnIdleTime,
	})
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis), apenas para o rate limiting
	var cacheClient cache.Client
	if cfg.RateLimitEnabled {
		redisClient := cache.NewRedisClient(cfg.RedisAddr)
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx); err != nil {
			// O rate limiting falha aberto; o serviço sobe mesmo sem Redis.
			appLog.Warn("Redis indisponível na inicialização.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		} else {
			appLog.Info("Conexão Redis estabelecida.", nil)
		}
		cancel()
		cacheClient = redisClient
	}

	// 2. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler
	txManager := database.NewTxManager(db)
	validator := validation.New(cfg.PhoneDefaultRegion)

	supplierRepo := supplierrepo.NewSupplierRepository(db, cfg.DBTimeout, appLog)
	itemRepo := itemrepo.NewItemRepository(db, cfg.DBTimeout, appLog)
	appLog.Debug("Repositórios inicializados.", nil)

	supplierSvc := supplierservice.NewService(supplierRepo, itemRepo, txManager, validator, cfg.DeleteMode(), appLog)
	itemSvc := itemservice.NewService(itemRepo, supplierRepo, supplierSvc, txManager, validator, cfg.DeleteMode(), appLog)
	appLog.Debug("Serviços inicializados.", nil)

	supplierHandler := supplier.NewHandler(supplierSvc, appLog)
	itemHandler := item.NewHandler(itemSvc, appLog)

	// C. Métricas (registry próprio, com coletores de processo e Go)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)

	opts := router.Options{
		Logger:          appLog,
		Metrics:         httpMetrics,
		RateLimitClient: cacheClient,
		RateLimit:       cfg.RateLimitMaxRequests,
		RatePeriod:      cfg.RateLimitPeriod,
		TrustProxy:      cfg.TrustProxy,
		Production:      cfg.IsProduction(),
	}
	if cfg.AuthEnabled {
		opts.TokenService = token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
		appLog.Debug("Serviço de Tokens JWT inicializado.", nil)
	}

	// 3. Configuração e Início do Servidor
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(supplierHandler, itemHandler, opts),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLog.Info("Servidor ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	// 4. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
