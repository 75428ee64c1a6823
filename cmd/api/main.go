package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"estateflow/agent"
	"estateflow/auth"
	"estateflow/db"
	"estateflow/property"
	"estateflow/report"
	"estateflow/user"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Printf("JWT_SECRET not set, using ephemeral dev secret")
		jwtSecret = "dev-secret-do-not-use"
	}

	server := &Server{
		users:       user.NewService(pool, user.NewRepository(pool)),
		agents:      agent.NewService(pool, agent.NewRepository(pool)),
		properties:  property.NewService(pool, property.NewRepository(pool)),
		reports:     report.NewService(pool),
		auth:        auth.NewService(auth.NewRepository(pool), jwtSecret),
		requireAuth: os.Getenv("AUTH_REQUIRED") == "true",
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("estateflow api listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server: %v", err)
	}
}
