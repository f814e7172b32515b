package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// OutlineToolName is the name the model uses to fetch a course outline.
const OutlineToolName = "get_course_outline"

type outlineArgs struct {
	CourseName string `json:"course_name"`
}

// OutlineTool returns a course's title, link, instructor and complete lesson
// list so the model can answer structural questions without content search.
type OutlineTool struct {
	store CourseStore
}

func NewOutlineTool(store CourseStore) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Name() string { return OutlineToolName }

func (t *OutlineTool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        OutlineToolName,
			Description: "Get the outline of a course: its title, link, instructor and complete numbered lesson list",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
				},
				"required": []string{"course_name"},
			},
		},
	}
}

// Execute resolves the course reference and renders the catalog entry.
// Outlines carry no sources.
func (t *OutlineTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var params outlineArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return Result{}, fmt.Errorf("failed to decode %s arguments: %v", OutlineToolName, err)
	}
	if strings.TrimSpace(params.CourseName) == "" {
		return Result{}, fmt.Errorf("%s requires a non-empty course_name", OutlineToolName)
	}

	title, err := t.store.ResolveCourseName(ctx, params.CourseName)
	if err != nil {
		return Result{Output: fmt.Sprintf("No course found matching '%s'", params.CourseName)}, nil
	}

	meta, err := t.store.CourseMeta(ctx, title)
	if err != nil {
		return Result{Output: fmt.Sprintf("Course metadata not found for '%s'", params.CourseName)}, nil
	}

	parts := []string{fmt.Sprintf("**Course Title:** %s", meta.Title)}
	if meta.Link != "" {
		parts = append(parts, fmt.Sprintf("**Course Link:** %s", meta.Link))
	}
	if meta.Instructor != "" {
		parts = append(parts, fmt.Sprintf("**Course Instructor:** %s", meta.Instructor))
	}
	parts = append(parts, fmt.Sprintf("**Number of Lessons:** %d", len(meta.Lessons)))
	parts = append(parts, "", "Lessons:")
	for _, lesson := range meta.Lessons {
		parts = append(parts, fmt.Sprintf("%d. %s", lesson.Number, lesson.Title))
	}

	return Result{Output: strings.Join(parts, "\n")}, nil
}
