// Command createstaff creates a back-office account. Staff accounts
// cannot be registered through the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/iliyamo/services-marketplace/internal/config"
	"github.com/iliyamo/services-marketplace/internal/database"
	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/repository"
)

var errUsage = errors.New("username, email and a password of at least 8 characters are required")

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = run(ctx, os.Args[1:], repository.NewUserRepo(db), cfg.BcryptCost, os.Stdout)
	cancel()
	_ = db.Close()

	switch {
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		log.Printf("createstaff: %v", err)
		os.Exit(2)
	case errors.Is(err, repository.ErrUserExists):
		log.Fatalf("createstaff: username or email already taken")
	case err != nil:
		log.Fatalf("createstaff: %v", err)
	}
}

// run parses args and inserts the staff user.
func run(ctx context.Context, args []string, users *repository.UserRepo, cost int, out io.Writer) error {
	fs := flag.NewFlagSet("createstaff", flag.ContinueOnError)
	fs.SetOutput(out)
	var u repository.NewUser
	fs.StringVar(&u.Username, "username", "", "login name (required)")
	fs.StringVar(&u.Email, "email", "", "email address (required)")
	fs.StringVar(&u.Password, "password", "", "password, at least 8 characters (required)")
	fs.StringVar(&u.FirstName, "first-name", "", "first name")
	fs.StringVar(&u.LastName, "last-name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if u.Username == "" || u.Email == "" || len(u.Password) < 8 {
		fs.Usage()
		return errUsage
	}
	u.Role = model.RoleStaff

	id, err := users.Create(ctx, u, cost)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created staff user %s (id=%d)\n", u.Username, id)
	return nil
}
