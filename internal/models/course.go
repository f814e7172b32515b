package models

// Course is a parsed course document. Title is the canonical identifier
// across both vector collections.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Preamble   string
	Lessons    []Lesson
}

type Lesson struct {
	Number  int
	Title   string
	Link    string
	Content string
}

// CourseChunk is one indexable piece of lesson text with its attribution.
// LessonNumber is nil for chunks cut from the course preamble.
type CourseChunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// CourseMeta is the catalog view of a course, decoded from collection
// metadata rather than re-parsed from the source document.
type CourseMeta struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []LessonRef
}

type LessonRef struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}
