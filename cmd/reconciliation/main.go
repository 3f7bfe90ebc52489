// cmd/reconciliation/main.go
package main

import (
	"log"
	"os"

	"reconciliation-service/internal/api"
	"reconciliation-service/internal/api/responses"
	"reconciliation-service/internal/config"
	"reconciliation-service/internal/core/auth"
	"reconciliation-service/internal/core/reconciliation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	loaded, err := config.LoadDotEnv(".env")
	switch {
	case os.IsNotExist(err):
		log.Print("Arquivo .env não encontrado, prosseguindo com variáveis de ambiente")
	case err != nil:
		log.Printf("Erro ao carregar .env: %v", err)
	default:
		log.Printf("%d variáveis de ambiente carregadas de .env", loaded)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		log.Fatalf("FATAL: erro ao carregar %s: %v", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: configuração inválida: %v", err)
	}

	logger, err := responses.InitLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("FATAL: erro ao inicializar logger: %v", err)
	}
	defer logger.Sync()

	authService, err := auth.NewService(cfg.Auth.PIN, cfg.Auth.PINHash, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("Erro ao configurar autenticação", zap.Error(err))
	}

	reconciliationService, err := reconciliation.NewService(logger, reconciliation.Options{
		Matching:        cfg.Matching,
		IncludeCredits:  cfg.Extraction.IncludeCredits,
		StatementLayout: cfg.Extraction.StatementLayout,
		ReportLayout:    cfg.Extraction.ReportLayout,
	})
	if err != nil {
		logger.Fatal("Erro ao configurar conciliação", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(cfg.Server, cfg.MaxUploadBytes(), authService, reconciliationService)

	logger.Info("🚀 Reconciliation Service (Go) iniciado",
		zap.String("port", cfg.Server.Port),
		zap.Strings("strategies", cfg.Matching.Strategies),
	)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Falha ao iniciar o servidor de conciliação", zap.Error(err))
	}
}
