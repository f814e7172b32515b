package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"course-rag/internal/models"
	"course-rag/internal/vectorstore"
)

// SearchToolName is the name the model uses to invoke content search.
const SearchToolName = "search_course_content"

type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

// SearchTool answers content questions by querying the chunk index with
// optional course and lesson filters.
type SearchTool struct {
	store CourseStore
}

func NewSearchTool(store CourseStore) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Name() string { return SearchToolName }

func (t *SearchTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        SearchToolName,
			Description: "Search course materials with smart course name matching and lesson filtering",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to search for in the course content",
					},
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
					"lesson_number": map[string]any{
						"type":        "integer",
						"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Execute runs the search and formats hits for the model. Retrieval
// problems come back as Output text; only schema violations are errors.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var params searchArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return Result{}, fmt.Errorf("failed to decode %s arguments: %v", SearchToolName, err)
	}
	if strings.TrimSpace(params.Query) == "" {
		return Result{}, fmt.Errorf("%s requires a non-empty query", SearchToolName)
	}

	results, err := t.store.Search(ctx, params.Query, params.CourseName, params.LessonNumber)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCourseNotFound) {
			return Result{Output: fmt.Sprintf("No course found matching '%s'", params.CourseName)}, nil
		}
		return Result{Output: fmt.Sprintf("Search error: %v", err)}, nil
	}
	if results.IsEmpty() {
		return Result{Output: emptyResultMessage(params)}, nil
	}

	return t.formatResults(ctx, results), nil
}

func emptyResultMessage(params searchArgs) string {
	var filter strings.Builder
	if params.CourseName != "" {
		fmt.Fprintf(&filter, " in course '%s'", params.CourseName)
	}
	if params.LessonNumber != nil {
		fmt.Fprintf(&filter, " in lesson %d", *params.LessonNumber)
	}

	return fmt.Sprintf("No relevant content found%s.", filter.String())
}

// formatResults renders one attributed block per hit and records one source
// per hit in the same order.
func (t *SearchTool) formatResults(ctx context.Context, results vectorstore.SearchResults) Result {
	blocks := make([]string, 0, len(results.Hits))
	sources := make([]models.Source, 0, len(results.Hits))

	for _, hit := range results.Hits {
		header := fmt.Sprintf("[%s]", hit.Meta.CourseTitle)
		source := models.Source{Label: hit.Meta.CourseTitle}

		if hit.Meta.LessonNumber != nil {
			lesson := *hit.Meta.LessonNumber
			header = fmt.Sprintf("[%s - Lesson %d]", hit.Meta.CourseTitle, lesson)
			source.Label = fmt.Sprintf("%s Lesson %d", hit.Meta.CourseTitle, lesson)
			if link, err := t.store.LessonLink(ctx, hit.Meta.CourseTitle, lesson); err == nil {
				source.Link = link
			}
		} else if link, err := t.store.CourseLink(ctx, hit.Meta.CourseTitle); err == nil {
			source.Link = link
		}

		blocks = append(blocks, header+"\n"+hit.Content)
		sources = append(sources, source)
	}

	return Result{
		Output:  strings.Join(blocks, "\n\n"),
		Sources: sources,
	}
}
