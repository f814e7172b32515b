package models

// Source attributes an answer to a course lesson. Label reads
// "<Course Title> Lesson <N>", or just the course title for preamble hits.
type Source struct {
	Label string
	Link  string
}

// Exchange is one user/assistant turn pair in a conversation.
type Exchange struct {
	User      string
	Assistant string
}

type QueryResult struct {
	SessionID string
	Answer    string
	Sources   []Source
}

type CourseAnalytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
