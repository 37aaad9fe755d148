package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/lojafacil/lojas-backend/internal/repo"
	"github.com/lojafacil/lojas-backend/internal/users"
	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/db"
	"github.com/lojafacil/lojas-backend/pkg/db/models"
	"github.com/lojafacil/lojas-backend/pkg/logger"
	"github.com/lojafacil/lojas-backend/pkg/security"
	"github.com/lojafacil/lojas-backend/pkg/validation"
)

const generatedPasswordLength = 16

var errUserExists = errors.New("a user with this email already exists")

type superuserInput struct {
	Name     string
	Email    string
	Password string
}

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "", "superuser email")
	name := flag.String("name", "Administrador", "display name")
	password := flag.String("password", "", "password; generated when empty")
	flag.Parse()

	addr := validation.NormalizeEmail(*email)
	if addr == "" {
		fmt.Fprintln(os.Stderr, "missing -email")
		os.Exit(1)
	}

	if err := run(context.Background(), superuserInput{Name: *name, Email: addr, Password: *password}); err != nil {
		if errors.Is(err, errUserExists) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// run returns instead of exiting so the database handle is closed on every path.
func run(ctx context.Context, in superuserInput) error {
	logg := logger.New(logger.Options{ServiceName: "createsuperuser"})

	cfg, err := config.Load()
	if err != nil {
		return resourceFailure(ctx, logg, "config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "createsuperuser",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "email": in.Email})

	dbClient, err := db.Open(ctx, cfg, logg)
	if err != nil {
		return resourceFailure(ctx, logg, "database", err)
	}
	defer dbClient.Close()

	hasher, err := security.NewHasher(cfg.Password)
	if err != nil {
		return resourceFailure(ctx, logg, "password hasher", err)
	}

	user, secret, err := createSuperuser(ctx, users.NewRepository(dbClient.DB()), hasher, in)
	if err != nil {
		if errors.Is(err, errUserExists) {
			return err
		}
		return resourceFailure(ctx, logg, "create user", err)
	}

	logg.Info(logg.WithField(ctx, "user_id", user.ID.String()), "superuser created")
	if in.Password == "" {
		fmt.Println("generated password:", secret)
	}
	return nil
}

// createSuperuser inserts an active staff superuser and returns the password
// it was given, generating one when in.Password is empty.
func createSuperuser(ctx context.Context, usersRepo *users.Repository, hasher *security.Hasher, in superuserInput) (*models.User, string, error) {
	switch _, err := usersRepo.FindByEmail(ctx, in.Email); {
	case err == nil:
		return nil, "", errUserExists
	case !repo.IsNotFound(err):
		return nil, "", fmt.Errorf("lookup email: %w", err)
	}

	secret := in.Password
	if secret == "" {
		var err error
		if secret, err = security.GenerateTempPassword(generatedPasswordLength); err != nil {
			return nil, "", fmt.Errorf("generate password: %w", err)
		}
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	active := true
	user, err := usersRepo.Create(ctx, users.CreateUserDTO{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     &active,
		IsStaff:      true,
		IsSuperuser:  true,
	})
	if err != nil {
		if users.IsDuplicateEmail(err) {
			return nil, "", errUserExists
		}
		return nil, "", err
	}
	return user, secret, nil
}

func resourceFailure(ctx context.Context, logg *logger.Logger, resource string, err error) error {
	logg.Error(ctx, "resource not working: "+resource, err)
	return fmt.Errorf("%s: %w", resource, err)
}
