package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"course-rag/internal/chunker"
	"course-rag/internal/helper"
	"course-rag/internal/models"
	"course-rag/internal/parser"
	"course-rag/internal/session"
	"course-rag/internal/tools"
	"course-rag/internal/vectorstore"
)

// RAG ties ingestion, retrieval tooling, session history and the generator
// into one queryable system.
type RAG struct {
	store    *vectorstore.Store
	chunker  *chunker.Chunker
	sessions session.Store
	registry *tools.Registry
	gen      *Generator
}

// New wires the search and outline tools over the store and prepares the
// generator.
func New(model llms.Model, store *vectorstore.Store, ch *chunker.Chunker, sessions session.Store) (*RAG, error) {
	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewSearchTool(store)); err != nil {
		return nil, err
	}
	if err := registry.Register(tools.NewOutlineTool(store)); err != nil {
		return nil, err
	}

	return &RAG{
		store:    store,
		chunker:  ch,
		sessions: sessions,
		registry: registry,
		gen:      NewGenerator(model, registry),
	}, nil
}

// Query answers one question, carrying conversation history for the
// session. A missing session id mints a fresh one, returned in the result.
// History load and save failures degrade the session, not the answer.
func (r *RAG) Query(ctx context.Context, query, sessionID string) (*models.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if sessionID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, fmt.Errorf("failed to create session id: %v", err)
		}
		sessionID = id
	}

	var history string
	if exchanges, err := r.sessions.Get(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("Failed to load session history")
	} else {
		history = session.FormatHistory(exchanges)
	}

	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)
	answer, sources, err := r.gen.Generate(ctx, prompt, history)
	if err != nil {
		return nil, err
	}

	if err := r.sessions.Append(ctx, sessionID, models.Exchange{User: query, Assistant: answer}); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("Failed to record exchange")
	}

	return &models.QueryResult{SessionID: sessionID, Answer: answer, Sources: sources}, nil
}

// AddCourseDocument ingests one course file, replacing any earlier version
// of the same course. Either the whole course lands in the index or none
// of it does.
func (r *RAG) AddCourseDocument(ctx context.Context, filePath string) (*models.Course, int, error) {
	course, err := parser.ParseCourseDocument(filePath)
	if err != nil {
		return nil, 0, err
	}

	chunks := r.chunker.ChunkCourse(course)

	if r.store.HasCourse(ctx, course.Title) {
		if err := r.store.DeleteCourse(ctx, course.Title); err != nil {
			return nil, 0, fmt.Errorf("failed to replace course '%s': %v", course.Title, err)
		}
	}
	if err := r.store.AddCourseMetadata(ctx, course); err != nil {
		return nil, 0, err
	}
	if err := r.store.AddCourseContent(ctx, chunks); err != nil {
		if delErr := r.store.DeleteCourse(ctx, course.Title); delErr != nil {
			log.Warn().Err(delErr).Str("course", course.Title).Msg("Failed to roll back partial ingest")
		}
		return nil, 0, err
	}

	log.Info().Str("course", course.Title).Int("chunks", len(chunks)).Msg("Course indexed")
	return course, len(chunks), nil
}

// AddCourseFolder ingests every supported file in folder. Courses already
// in the index keep their chunks; only their catalog metadata is
// refreshed, which also repopulates the title registry after a restart.
// Returns the number of new courses and chunks added.
func (r *RAG) AddCourseFolder(ctx context.Context, folder string, clearExisting bool) (int, int, error) {
	if clearExisting {
		log.Info().Msg("Clearing existing course data")
		if err := r.store.Clear(ctx); err != nil {
			return 0, 0, fmt.Errorf("failed to clear vector store: %v", err)
		}
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read docs folder %s: %v", folder, err)
	}

	var totalCourses, totalChunks int
	for _, entry := range entries {
		if entry.IsDir() || !parser.SupportedExtension(entry.Name()) {
			continue
		}
		path := filepath.Join(folder, entry.Name())

		course, err := parser.ParseCourseDocument(path)
		if err != nil {
			log.Error().Err(err).Str("file", entry.Name()).Msg("Skipping course document")
			continue
		}

		if r.store.HasCourse(ctx, course.Title) {
			if err := r.store.AddCourseMetadata(ctx, course); err != nil {
				log.Error().Err(err).Str("course", course.Title).Msg("Failed to refresh course metadata")
			}
			log.Debug().Str("course", course.Title).Msg("Course already indexed, skipping chunks")
			continue
		}

		chunks := r.chunker.ChunkCourse(course)
		if err := r.store.AddCourseMetadata(ctx, course); err != nil {
			log.Error().Err(err).Str("course", course.Title).Msg("Failed to add course metadata")
			continue
		}
		if err := r.store.AddCourseContent(ctx, chunks); err != nil {
			log.Error().Err(err).Str("course", course.Title).Msg("Failed to index course content")
			if delErr := r.store.DeleteCourse(ctx, course.Title); delErr != nil {
				log.Warn().Err(delErr).Str("course", course.Title).Msg("Failed to roll back partial ingest")
			}
			continue
		}

		totalCourses++
		totalChunks += len(chunks)
		log.Info().Str("course", course.Title).Int("chunks", len(chunks)).Msg("Added new course")
	}

	return totalCourses, totalChunks, nil
}

// Analytics reports what is currently indexed.
func (r *RAG) Analytics() models.CourseAnalytics {
	return models.CourseAnalytics{
		TotalCourses: r.store.CourseCount(),
		CourseTitles: r.store.CourseTitles(),
	}
}
