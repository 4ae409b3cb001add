package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	"github.com/noah-isme/eduorg-api/internal/service"
	"github.com/noah-isme/eduorg-api/pkg/config"
	"github.com/noah-isme/eduorg-api/pkg/database"
	"github.com/noah-isme/eduorg-api/pkg/logger"
)

const usage = `usage: migrate <command> [args]

commands:
  up | down | status | version | redo | reset   run goose against the embedded migrations
  create-tenant -slug s -name n -admin-email e -admin-password p
                                                create a tenant and its first ADMIN user
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	command := os.Args[1]
	switch command {
	case "create-tenant":
		if err := createTenant(cfg, db, logr, os.Args[2:]); err != nil {
			logr.Fatal("create tenant failed", zap.Error(err))
		}
	default:
		if err := database.Migrate(db, command, os.Args[2:]...); err != nil {
			logr.Fatal("migration failed", zap.String("command", command), zap.Error(err))
		}
		logr.Info("migration finished", zap.String("command", command))
	}
}

func createTenant(cfg *config.Config, db *sqlx.DB, logr *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	slug := fs.String("slug", "", "tenant slug used in headers and subdomains")
	name := fs.String("name", "", "display name")
	email := fs.String("admin-email", "", "email of the first administrator")
	password := fs.String("admin-password", "", "password of the first administrator")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" || *name == "" || *email == "" || *password == "" {
		fs.Usage()
		return fmt.Errorf("slug, name, admin-email and admin-password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenant := &models.Tenant{Slug: strings.ToLower(strings.TrimSpace(*slug)), Name: *name, Active: true}
	if err := repository.NewTenantRepository(db).Create(ctx, tenant); err != nil {
		return err
	}

	auth := service.NewAuthService(repository.NewUserRepository(db), nil, nil, logr, service.AuthConfig{Secret: cfg.JWT.Secret})
	admin, err := auth.CreateUser(ctx, tenant.ID, models.RegisterRequest{
		Email:    *email,
		Password: *password,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}

	logr.Info("tenant created",
		zap.String("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug),
		zap.String("admin_id", admin.ID),
	)
	return nil
}
