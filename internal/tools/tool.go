package tools

import (
	"context"
	"encoding/json"

	"github.com/tmc/langchaingo/llms"

	"course-rag/internal/models"
	"course-rag/internal/vectorstore"
)

// Result carries one tool execution back to the orchestrator. Output is fed
// to the model verbatim; Sources surface to the caller for attribution.
// Domain failures (unknown course, empty results) are reported through
// Output so the model can react to them; an error return means the call
// itself was invalid and aborts the query.
type Result struct {
	Output  string
	Sources []models.Source
}

// Tool is one callable surface exposed to the language model.
type Tool interface {
	Name() string
	Definition() llms.Tool
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// CourseStore is the slice of the vector store the tools depend on.
type CourseStore interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) (vectorstore.SearchResults, error)
	ResolveCourseName(ctx context.Context, name string) (string, error)
	CourseMeta(ctx context.Context, title string) (models.CourseMeta, error)
	LessonLink(ctx context.Context, title string, lessonNumber int) (string, error)
	CourseLink(ctx context.Context, title string) (string, error)
}
