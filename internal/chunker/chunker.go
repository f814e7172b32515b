package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"course-rag/internal/models"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	sentenceEndRe = regexp.MustCompile(`[.!?]+\s+`)
)

// Chunker splits text into sentence-aligned pieces of at most size
// characters, consecutive pieces sharing up to overlap trailing characters.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split breaks text into chunks. Whitespace is collapsed first, then whole
// sentences are accumulated up to the size limit; on overflow the trailing
// sentences within the overlap allowance carry into the next chunk. Sentences
// longer than the limit are force-split beforehand, so every returned chunk
// fits the limit. Empty or blank text yields no chunks.
func (c *Chunker) Split(text string) []string {
	normalized := whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if normalized == "" {
		return nil
	}

	sentences := c.hardSplit(splitSentences(normalized))

	var chunks []string
	var current []string
	currentLen := 0

	for _, sentence := range sentences {
		joined := currentLen + len(sentence)
		if len(current) > 0 {
			joined++
		}
		if joined > c.size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current, currentLen = c.overlapTail(current)
			joined = currentLen + len(sentence)
			if len(current) > 0 {
				joined++
			}
			// carrying the overlap would push past the limit
			if joined > c.size && len(current) > 0 {
				current, currentLen = nil, 0
			}
		}
		if len(current) > 0 {
			currentLen++
		}
		current = append(current, sentence)
		currentLen += len(sentence)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// ChunkCourse flattens a course into attributed chunks. The first chunk of
// each lesson carries a short lesson header, later chunks repeat the course
// title so a chunk read in isolation still names its origin. Preamble text
// is chunked with a course-level header and no lesson number. Chunk indexes
// restart at zero for every lesson.
func (c *Chunker) ChunkCourse(course *models.Course) []models.CourseChunk {
	var chunks []models.CourseChunk
	for i, piece := range c.Split(course.Preamble) {
		chunks = append(chunks, models.CourseChunk{
			Content:     fmt.Sprintf("Course %s content: %s", course.Title, piece),
			CourseTitle: course.Title,
			ChunkIndex:  i,
		})
	}
	for _, lesson := range course.Lessons {
		number := lesson.Number
		for i, piece := range c.Split(lesson.Content) {
			content := fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, number, piece)
			if i == 0 {
				content = fmt.Sprintf("Lesson %d content: %s", number, piece)
			}
			chunks = append(chunks, models.CourseChunk{
				Content:      content,
				CourseTitle:  course.Title,
				LessonNumber: &number,
				ChunkIndex:   i,
			})
		}
	}
	return chunks
}

// splitSentences cuts at terminator runs followed by whitespace. A trailing
// fragment without a terminator is kept as a sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[start:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// hardSplit force-splits sentences longer than the chunk size, preferring
// the last space inside the window and backing off to a rune boundary
// when the window has none.
func (c *Chunker) hardSplit(sentences []string) []string {
	var out []string
	for _, sentence := range sentences {
		if len(sentence) <= c.size {
			out = append(out, sentence)
			continue
		}
		start := 0
		for start < len(sentence) {
			end := start + c.size
			if end >= len(sentence) {
				end = len(sentence)
			} else if i := strings.LastIndexByte(sentence[start:end], ' '); i > 0 {
				end = start + i
			} else {
				for end > start+1 && !utf8.RuneStart(sentence[end]) {
					end--
				}
			}
			piece := strings.TrimSpace(sentence[start:end])
			if piece != "" {
				out = append(out, piece)
			}
			start = end
		}
	}
	return out
}

// overlapTail returns a copy of the longest sentence suffix whose joined
// length fits the overlap allowance, with that length.
func (c *Chunker) overlapTail(sentences []string) ([]string, int) {
	if c.overlap <= 0 {
		return nil, 0
	}
	cut := len(sentences)
	tailLen := 0
	for cut > 0 {
		add := len(sentences[cut-1])
		if tailLen > 0 {
			add++
		}
		if tailLen+add > c.overlap {
			break
		}
		tailLen += add
		cut--
	}
	if cut == len(sentences) {
		return nil, 0
	}
	return append([]string(nil), sentences[cut:]...), tailLen
}
