// Command create-admin seeds a staff account so the first admin can log in.
//
//	go run ./cmd/create-admin -email admin@example.com -password '...' [-role ADMIN|GATE]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/lulgamer69/event-ticket-system/internal/config"
	"github.com/lulgamer69/event-ticket-system/internal/database"
	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/repository"
)

func main() {
	email := flag.String("email", "", "staff email")
	password := flag.String("password", "", "staff password (min 8 characters)")
	role := flag.String("role", model.RoleAdmin, "ADMIN or GATE")
	flag.Parse()

	r := strings.ToUpper(strings.TrimSpace(*role))
	if *email == "" || *password == "" || (r != model.RoleAdmin && r != model.RoleGate) {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
		log.Fatalf("db: %v", err)
	}

	id, err := repository.NewUserRepo(db).Create(ctx, *email, *password, r, cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		fmt.Println("user already exists:", strings.ToLower(strings.TrimSpace(*email)))
		return
	}
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	fmt.Printf("created %s user %d (%s)\n", r, id, strings.ToLower(strings.TrimSpace(*email)))
}
