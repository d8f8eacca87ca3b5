// cmd/preregister seeds the member store with pre-registered members from a
// JSON file, typically to bootstrap the first admins before anyone can sign
// in. Each entry is {"email": ..., "name": ..., "role": ...}; the records are
// merged into identity-keyed ones on first sign-in.
//
// Usage: preregister -file admins.json
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"eventcheckin/config"
	"eventcheckin/internal/repository/postgres"
	"eventcheckin/internal/services"
)

type seedEntry struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func main() {
	file := flag.String("file", "", "path to a JSON array of members to pre-register")
	flag.Parse()
	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: preregister -file members.json")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	raw, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("failed to read seed file", "file", *file, "err", err)
		os.Exit(1)
	}
	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Error("failed to parse seed file", "file", *file, "err", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		logger.Info("seed file is empty, nothing to do")
		return
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "err", err)
		os.Exit(1)
	}

	members := postgres.NewMemberRepository(db)
	roster := services.NewRosterService(members, nil, logger)

	ctx := context.Background()
	failed := 0
	for _, e := range entries {
		member, err := roster.PreRegister(ctx, e.Email, e.Name, e.Role)
		if err != nil {
			logger.Error("failed to pre-register member", "email", e.Email, "err", err)
			failed++
			continue
		}
		logger.Info("pre-registered member", "id", member.ID, "email", member.Email, "role", member.Role)
	}
	if failed > 0 {
		logger.Error("some members were not pre-registered", "failed", failed, "total", len(entries))
		os.Exit(1)
	}
	logger.Info("done", "count", len(entries))
}
