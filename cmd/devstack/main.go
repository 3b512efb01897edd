package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/solvemyproblem/core/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run a local MariaDB and Authorizer stack for development.

Usage:

devstack [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  devstack -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	ctx := context.Background()
	if !testutil.DockerAvailable(ctx) {
		log.Fatalf("No reachable Docker daemon, cannot start the devstack\n")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	clientID := os.Getenv("AUTHZ_CLIENT_ID")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	adminSecret := os.Getenv("AUTHZ_ADMIN_SECRET")
	if adminSecret == "" {
		adminSecret = uuid.NewString()
	}

	db, err := testutil.StartMariaDB(ctx)
	if err != nil {
		log.Fatalf("Failed to start MariaDB: %v\n", err)
	}
	log.Printf("MariaDB ready at %s:%s (database=%s user=%s password=%s)\n",
		db.Host, db.Port, db.Database, db.User, db.Password)

	authz, authzURL, err := testutil.StartAuthorizer(ctx, db, clientID, adminSecret)
	if err != nil {
		_ = db.Terminate(ctx)
		log.Fatalf("Failed to start Authorizer: %v\n", err)
	}
	log.Printf("Authorizer ready at %s (client_id=%s admin_secret=%s)\n", authzURL, clientID, adminSecret)

	log.Printf("Export these for the server:\n")
	fmt.Printf("export DB_TYPE=mysql\n")
	fmt.Printf("export DB_HOST=%s\n", db.Host)
	fmt.Printf("export DB_PORT=%s\n", db.Port)
	fmt.Printf("export DB_DATABASE=%s\n", db.Database)
	fmt.Printf("export DB_USER=%s\n", db.User)
	fmt.Printf("export DB_PASSWORD=%s\n", db.Password)
	fmt.Printf("export AUTHZ_URL=%s\n", authzURL)
	fmt.Printf("export AUTHZ_CLIENT_ID=%s\n", clientID)

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating the devstack...\n", sig)
	_ = authz.Terminate(ctx)
	_ = db.Terminate(ctx)
}
