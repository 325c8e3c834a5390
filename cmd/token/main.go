// Comando token emite um JWT de desenvolvimento para chamar a API com AUTH_ENABLED=true.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"almoxarifado/internal/pkg/token"
)

// tokenConfig lê só o necessário para assinar; DATABASE_URL não é exigida aqui.
type tokenConfig struct {
	JWTSecretKey string        `envconfig:"JWT_SECRET_KEY" required:"true"`
	TokenExpiry  time.Duration `envconfig:"JWT_EXPIRY" default:"60m"`
}

func main() {
	_ = godotenv.Load()

	var cfg tokenConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("token: %v", err)
	}

	subject := flag.String("sub", "dev", "sujeito (usuário ou sistema cliente)")
	role := flag.String("role", "admin", "papel gravado no token")
	expiry := flag.Duration("exp", 0, "validade; padrão JWT_EXPIRY")
	flag.Parse()

	validity := *expiry
	if validity == 0 {
		validity = cfg.TokenExpiry
	}

	tok, err := token.NewService(cfg.JWTSecretKey, validity).GenerateToken(*subject, *role)
	if err != nil {
		log.Fatalf("token: %v", err)
	}
	fmt.Println(tok)
}
