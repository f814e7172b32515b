package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"course-rag/internal/chunker"
	"course-rag/internal/config"
	"course-rag/internal/embedding"
	"course-rag/internal/helper"
	"course-rag/internal/llmservice"
	"course-rag/internal/rag"
	"course-rag/internal/session"
	"course-rag/internal/tui"
	"course-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	docsPath := flag.String("docs", "", "Course documents folder (overrides config)")
	file := flag.String("file", "", "Add or replace a single course document and exit")
	query := flag.String("query", "", "Ask one question and exit")
	sessionID := flag.String("session", "", "Session id to continue a conversation")
	list := flag.Bool("list", false, "Print course analytics and exit")
	clear := flag.Bool("clear", false, "Clear the vector store before ingesting")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *docsPath != "" {
		cfg.RAG.DocsPath = *docsPath
	}

	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx := context.Background()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	store, err := vectorstore.NewStore(cfg.RAG.DBPath, embedding.Func(embedder), cfg.RAG.MaxResults)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}

	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating chunker")
	}

	sessions, cleanup, err := newSessionStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session store")
	}
	defer cleanup()

	model, err := llmservice.New(&cfg.Anthropic)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating LLM client")
	}

	system, err := rag.New(model, store, ch, sessions)
	if err != nil {
		log.Fatal().Err(err).Msg("Error assembling RAG system")
	}

	courses, chunks, err := system.AddCourseFolder(ctx, cfg.RAG.DocsPath, *clear)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading course documents")
	}
	log.Info().Int("courses", courses).Int("chunks", chunks).Msg("Course documents loaded")

	switch {
	case *list:
		helper.PrettyPrint(system.Analytics())
	case *file != "":
		course, count, err := system.AddCourseDocument(ctx, *file)
		if err != nil {
			log.Fatal().Err(err).Msg("Error adding course document")
		}
		log.Info().Str("course", course.Title).Int("chunks", count).Msg("Course document indexed")
	case *query != "":
		answerOnce(ctx, system, *query, *sessionID)
	default:
		runChat(system)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.Session.Store == "postgres" {
		store := session.NewPostgresStore(&cfg.Session.Database, cfg.Session.MaxHistory)
		if err := store.Init(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return session.NewMemoryStore(cfg.Session.MaxHistory), func() {}, nil
}

func answerOnce(ctx context.Context, system *rag.RAG, query, sessionID string) {
	result, err := system.Query(ctx, query, sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, source := range result.Sources {
		if source.Link != "" {
			fmt.Printf("%s (%s)\n", source.Label, source.Link)
		} else {
			fmt.Printf("%s\n", source.Label)
		}
	}
	fmt.Println()

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", result.Answer)

	log.Info().Str("session", result.SessionID).Msg("Continue this conversation with -session")
}

func runChat(system *rag.RAG) {
	analytics := system.Analytics()
	summary := fmt.Sprintf("%d courses indexed", analytics.TotalCourses)

	program := tea.NewProgram(tui.New(system, summary), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatal().Err(err).Msg("Error running chat")
	}
}
