// Re-uploads the JSON transcript of every completed test session to object
// storage.
//
// Transcripts are normally archived as a side effect of finalization; this
// script covers the gaps, for example after the archive bucket was down or
// archival was enabled on an existing database.
//
// Usage: go run scripts/archive_backfill.go

package main

import (
	"context"
	"log"

	"testhub_backend/internal/config"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/service"
	"testhub_backend/pkg/database"
	"testhub_backend/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Archive.Enabled {
		log.Fatal("archive.enabled is false; nothing to backfill")
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	archiver, err := service.NewArchiveService(cfg.Archive)
	if err != nil {
		log.Fatalf("failed to init archive storage: %v", err)
	}

	repo := repository.NewTestSessionRepository(db)
	sessions, err := repo.ListSessions()
	if err != nil {
		log.Fatalf("failed to list sessions: %v", err)
	}

	ctx := context.Background()
	archived := 0
	for i := range sessions {
		session := &sessions[i]
		if !session.Completed() {
			continue
		}
		questions, err := repo.ListQuestions(session.ID)
		if err != nil {
			log.Printf("skipping %s: %v", session.ID, err)
			continue
		}
		answers, err := repo.ListAnswers(session.ID)
		if err != nil {
			log.Printf("skipping %s: %v", session.ID, err)
			continue
		}
		archiver.ArchiveSession(ctx, session, questions, answers)
		archived++
	}

	log.Printf("done: archived %d completed sessions", archived)
}
