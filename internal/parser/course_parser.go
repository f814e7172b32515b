package parser

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"course-rag/internal/models"
)

var (
	courseTitleRe      = regexp.MustCompile(models.CourseTitleRegex)
	courseLinkRe       = regexp.MustCompile(models.CourseLinkRegex)
	courseInstructorRe = regexp.MustCompile(models.CourseInstructorRegex)
	lessonMarkerRe     = regexp.MustCompile(models.LessonMarkerRegex)
	lessonLinkRe       = regexp.MustCompile(models.LessonLinkRegex)
)

type courseParserState struct {
	course      models.Course
	current     *models.Lesson
	body        strings.Builder
	preamble    strings.Builder
	afterMarker bool
}

// ParseCourseDocument reads and parses a single course document file.
func ParseCourseDocument(filePath string) (*models.Course, error) {
	content, err := ReadCourseFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", filePath, err)
	}
	course, err := ParseCourseText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", filePath, err)
	}
	return course, nil
}

// ParseCourseText parses course document text according to the expected
// layout: header lines (Course Title / Course Link / Course Instructor),
// then lesson blocks started by "Lesson <N>: <title>" markers, each
// optionally followed by a "Lesson Link:" line. Text between the headers
// and the first lesson marker becomes the course preamble.
//
// A document without a course title is malformed and returns an error.
func ParseCourseText(input string) (*models.Course, error) {
	var state courseParserState

	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		processCourseLine(scanner.Text(), &state)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan document: %v", err)
	}
	finishLesson(&state)

	state.course.Preamble = state.preamble.String()
	if state.course.Title == "" {
		return nil, fmt.Errorf("no course title found")
	}
	return &state.course, nil
}

// processCourseLine handles a single line of a course document, updating the
// parser state accordingly
func processCourseLine(line string, state *courseParserState) {
	trimmed := strings.TrimSpace(line)

	if m := lessonMarkerRe.FindStringSubmatch(trimmed); m != nil {
		finishLesson(state)
		number, _ := strconv.Atoi(m[1])
		state.current = &models.Lesson{Number: number, Title: strings.TrimSpace(m[2])}
		state.afterMarker = true
		return
	}

	// A lesson link only binds when it is the first line after the marker.
	if state.afterMarker && trimmed != "" {
		state.afterMarker = false
		if m := lessonLinkRe.FindStringSubmatch(trimmed); m != nil {
			state.current.Link = strings.TrimSpace(m[1])
			return
		}
	}

	if state.current == nil {
		if m := courseTitleRe.FindStringSubmatch(trimmed); m != nil {
			state.course.Title = strings.TrimSpace(m[1])
			return
		}
		if m := courseLinkRe.FindStringSubmatch(trimmed); m != nil {
			state.course.Link = strings.TrimSpace(m[1])
			return
		}
		if m := courseInstructorRe.FindStringSubmatch(trimmed); m != nil {
			state.course.Instructor = strings.TrimSpace(m[1])
			return
		}
		if trimmed != "" {
			if state.preamble.Len() > 0 {
				state.preamble.WriteString("\n")
			}
			state.preamble.WriteString(trimmed)
		}
		return
	}

	if trimmed != "" {
		if state.body.Len() > 0 {
			state.body.WriteString("\n")
		}
		state.body.WriteString(trimmed)
	}
}

// finishLesson saves the lesson being accumulated, if any
func finishLesson(state *courseParserState) {
	if state.current == nil {
		return
	}
	state.current.Content = state.body.String()
	state.course.Lessons = append(state.course.Lessons, *state.current)
	state.current = nil
	state.body.Reset()
}
