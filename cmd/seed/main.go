// Command seed creates or promotes an administrator account so a fresh
// deployment has someone who can manage users.
//
//	seed -admin someone@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/grading-api/internal/config"
	"github.com/iliyamo/grading-api/internal/database"
	"github.com/iliyamo/grading-api/internal/logging"
	"github.com/iliyamo/grading-api/internal/repository"
)

func main() {
	admin := flag.String("admin", "", "email address to create or promote to administrator")
	flag.Parse()

	if err := run(*admin); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(email string) error {
	if err := validator.New().Var(email, "required,email"); err != nil {
		return fmt.Errorf("-admin must be a valid email address")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.SetupDefault(os.Stdout, cfg.LogLevelValue())

	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	u, err := repository.NewUserRepo(db).PromoteAdmin(ctx, email)
	if err != nil {
		return err
	}
	log.Info("administrator ready", slog.Uint64("id", u.ID), slog.String("email", u.Email))
	return nil
}
