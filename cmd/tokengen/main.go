// Command tokengen prints a signed access token for service accounts and local testing.
package main

import (
	"alcyxob/training-service/internal/api"
	"alcyxob/training-service/internal/config"
	"alcyxob/training-service/internal/domain"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", ".", "directory holding config.yaml")
	userID := pflag.String("user", "planning-service", "token subject")
	role := pflag.String("role", string(domain.RoleService), "admin, coach, medical_staff, player or service")
	org := pflag.String("org", "", "organization the token is scoped to (required)")
	ttl := pflag.Duration("ttl", 0, "token lifetime; defaults to jwt.expiration")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *ttl == 0 {
		*ttl = cfg.JWT.Expiration
	}

	token, err := api.IssueToken(cfg.JWT.Secret, *userID, domain.Role(*role), *org, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v (jwt.secret and --org are required)\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
