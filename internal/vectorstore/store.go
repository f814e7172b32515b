package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/philippgille/chromem-go"

	"course-rag/internal/models"
)

const (
	catalogCollection = "course_catalog"
	contentCollection = "course_content"
)

// catalog metadata keys
const (
	metaTitle       = "title"
	metaInstructor  = "instructor"
	metaCourseLink  = "course_link"
	metaLessonCount = "lesson_count"
	metaLessonsJSON = "lessons_json"
)

// content metadata keys
const (
	metaCourseTitle  = "course_title"
	metaLessonNumber = "lesson_number"
	metaChunkIndex   = "chunk_index"
	metaSeq          = "seq"
)

// ErrCourseNotFound reports that a course reference resolved to nothing in
// the catalog. Callers must treat it differently from an empty result set.
var ErrCourseNotFound = errors.New("no course found")

type SearchResults struct {
	Hits []Hit
}

func (r SearchResults) IsEmpty() bool { return len(r.Hits) == 0 }

// Hit is one search result. Distance is 1 minus cosine similarity, so
// results order ascending.
type Hit struct {
	Content  string
	Meta     ChunkMeta
	Distance float32
}

// ChunkMeta is the attribution carried by a content document.
// LessonNumber is nil for preamble chunks.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// Store wraps a chromem-go database with two collections: a catalog with one
// entry per course for fuzzy name resolution, and the chunk contents for
// filtered semantic search.
type Store struct {
	db         *chromem.DB
	catalog    *chromem.Collection
	content    *chromem.Collection
	embed      chromem.EmbeddingFunc
	maxResults int

	// insertion counter, persisted per chunk for stable tie ordering
	seq int64

	mu     sync.RWMutex
	titles []string
}

// NewStore opens the database at dbPath, or an in-memory database when the
// path is empty.
func NewStore(dbPath string, embed chromem.EmbeddingFunc, maxResults int) (*Store, error) {
	if maxResults < 1 {
		return nil, fmt.Errorf("max results must be positive, got %d", maxResults)
	}

	var db *chromem.DB
	var err error
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	s := &Store{db: db, embed: embed, maxResults: maxResults, seq: time.Now().UnixNano()}
	if err := s.openCollections(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) openCollections() error {
	catalog, err := s.db.GetOrCreateCollection(catalogCollection, nil, s.embed)
	if err != nil {
		return fmt.Errorf("failed to create/get collection %s: %v", catalogCollection, err)
	}
	content, err := s.db.GetOrCreateCollection(contentCollection, nil, s.embed)
	if err != nil {
		return fmt.Errorf("failed to create/get collection %s: %v", contentCollection, err)
	}
	s.catalog = catalog
	s.content = content
	return nil
}

// AddCourseMetadata upserts the catalog entry for a course. The document
// text is the canonical title, which is the surface name resolution
// matches against.
func (s *Store) AddCourseMetadata(ctx context.Context, course *models.Course) error {
	lessons := make([]models.LessonRef, 0, len(course.Lessons))
	for _, lesson := range course.Lessons {
		lessons = append(lessons, models.LessonRef{Number: lesson.Number, Title: lesson.Title, Link: lesson.Link})
	}
	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("failed to encode lessons for '%s': %v", course.Title, err)
	}

	metadata := map[string]string{
		metaTitle:       course.Title,
		metaLessonCount: strconv.Itoa(len(course.Lessons)),
		metaLessonsJSON: string(lessonsJSON),
	}
	if course.Instructor != "" {
		metadata[metaInstructor] = course.Instructor
	}
	if course.Link != "" {
		metadata[metaCourseLink] = course.Link
	}

	if s.HasCourse(ctx, course.Title) {
		if err := s.catalog.Delete(ctx, nil, nil, course.Title); err != nil {
			return fmt.Errorf("failed to replace catalog entry for '%s': %v", course.Title, err)
		}
	}
	doc := chromem.Document{ID: course.Title, Content: course.Title, Metadata: metadata}
	if err := s.catalog.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add catalog entry for '%s': %v", course.Title, err)
	}

	s.registerTitle(course.Title)
	return nil
}

// AddCourseContent indexes chunks. Document IDs derive from the identity
// triple (course, lesson, index), so re-adding a chunk replaces it.
func (s *Store) AddCourseContent(ctx context.Context, chunks []models.CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		metadata := map[string]string{
			metaCourseTitle: chunk.CourseTitle,
			metaChunkIndex:  strconv.Itoa(chunk.ChunkIndex),
			metaSeq:         strconv.FormatInt(atomic.AddInt64(&s.seq, 1), 10),
		}
		lessonKey := "pre"
		if chunk.LessonNumber != nil {
			metadata[metaLessonNumber] = strconv.Itoa(*chunk.LessonNumber)
			lessonKey = strconv.Itoa(*chunk.LessonNumber)
		}
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("%s|%s|%d", chunk.CourseTitle, lessonKey, chunk.ChunkIndex),
			Content:  chunk.Content,
			Metadata: metadata,
		})
	}

	if err := s.content.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search runs filtered semantic search over course content. A non-empty
// courseName is resolved against the catalog first; resolution failure
// short-circuits without touching the content collection. An empty content
// collection yields empty results, not an error.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) (SearchResults, error) {
	if query == "" {
		return SearchResults{}, fmt.Errorf("query text must be provided")
	}

	where := map[string]string{}
	if courseName != "" {
		title, err := s.ResolveCourseName(ctx, courseName)
		if err != nil {
			return SearchResults{}, err
		}
		where[metaCourseTitle] = title
	}
	if lessonNumber != nil {
		where[metaLessonNumber] = strconv.Itoa(*lessonNumber)
	}

	n := s.maxResults
	count := s.content.Count()
	if count == 0 {
		return SearchResults{}, nil
	}
	if count < n {
		n = count
	}

	results, err := s.content.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryText: query,
		NResults:  n,
		Where:     where,
	})
	if err != nil {
		return SearchResults{}, fmt.Errorf("failed to query by similarity: %v", err)
	}

	type rankedHit struct {
		hit Hit
		seq int64
	}
	ranked := make([]rankedHit, 0, len(results))
	for _, result := range results {
		seq, _ := strconv.ParseInt(result.Metadata[metaSeq], 10, 64)
		ranked = append(ranked, rankedHit{
			hit: Hit{
				Content:  result.Content,
				Meta:     decodeChunkMeta(result.Metadata),
				Distance: 1 - result.Similarity,
			},
			seq: seq,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].hit.Distance != ranked[j].hit.Distance {
			return ranked[i].hit.Distance < ranked[j].hit.Distance
		}
		return ranked[i].seq < ranked[j].seq
	})

	hits := make([]Hit, len(ranked))
	for i, r := range ranked {
		hits[i] = r.hit
	}
	return SearchResults{Hits: hits}, nil
}

// ResolveCourseName maps a possibly partial course reference to the
// canonical title via nearest-neighbor lookup over the catalog. This is the
// only mechanism turning user course references into canonical titles.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("course name must be provided")
	}
	if s.catalog.Count() == 0 {
		return "", fmt.Errorf("%w matching '%s'", ErrCourseNotFound, name)
	}

	results, err := s.catalog.QueryWithOptions(ctx, chromem.QueryOptions{QueryText: name, NResults: 1})
	if err != nil {
		return "", fmt.Errorf("failed to resolve course name '%s': %v", name, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%w matching '%s'", ErrCourseNotFound, name)
	}
	return results[0].ID, nil
}

// CourseMeta returns the catalog entry for an exact canonical title.
func (s *Store) CourseMeta(ctx context.Context, title string) (models.CourseMeta, error) {
	doc, err := s.catalog.GetByID(ctx, title)
	if err != nil {
		return models.CourseMeta{}, fmt.Errorf("course metadata not found for '%s': %v", title, err)
	}

	meta := models.CourseMeta{
		Title:      doc.Metadata[metaTitle],
		Link:       doc.Metadata[metaCourseLink],
		Instructor: doc.Metadata[metaInstructor],
	}
	if meta.Title == "" {
		meta.Title = doc.ID
	}
	if raw := doc.Metadata[metaLessonsJSON]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta.Lessons); err != nil {
			return models.CourseMeta{}, fmt.Errorf("failed to decode lessons for '%s': %v", title, err)
		}
	}
	return meta, nil
}

// LessonLink returns the link of one lesson, or "" when unknown.
func (s *Store) LessonLink(ctx context.Context, title string, lessonNumber int) (string, error) {
	meta, err := s.CourseMeta(ctx, title)
	if err != nil {
		return "", err
	}
	for _, lesson := range meta.Lessons {
		if lesson.Number == lessonNumber {
			return lesson.Link, nil
		}
	}
	return "", nil
}

func (s *Store) CourseLink(ctx context.Context, title string) (string, error) {
	meta, err := s.CourseMeta(ctx, title)
	if err != nil {
		return "", err
	}
	return meta.Link, nil
}

func (s *Store) HasCourse(ctx context.Context, title string) bool {
	_, err := s.catalog.GetByID(ctx, title)
	return err == nil
}

// CourseCount reports the catalog size straight from the collection.
func (s *Store) CourseCount() int {
	return s.catalog.Count()
}

// CourseTitles lists canonical titles in ingestion order. chromem has no
// document enumeration, so the list lives in memory and is repopulated by
// the startup ingestion pass.
func (s *Store) CourseTitles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.titles...)
}

// DeleteCourse removes a course's chunks and catalog entry.
func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	if err := s.content.Delete(ctx, map[string]string{metaCourseTitle: title}, nil); err != nil {
		return fmt.Errorf("failed to delete chunks for '%s': %v", title, err)
	}
	if s.HasCourse(ctx, title) {
		if err := s.catalog.Delete(ctx, nil, nil, title); err != nil {
			return fmt.Errorf("failed to delete catalog entry for '%s': %v", title, err)
		}
	}
	s.unregisterTitle(title)
	return nil
}

// Clear drops and recreates both collections.
func (s *Store) Clear(ctx context.Context) error {
	for _, name := range []string{catalogCollection, contentCollection} {
		if err := s.db.DeleteCollection(name); err != nil {
			return fmt.Errorf("failed to drop collection %s: %v", name, err)
		}
	}
	s.mu.Lock()
	s.titles = nil
	s.mu.Unlock()
	return s.openCollections()
}

func (s *Store) registerTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.titles {
		if t == title {
			return
		}
	}
	s.titles = append(s.titles, title)
}

func (s *Store) unregisterTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.titles {
		if t == title {
			s.titles = append(s.titles[:i], s.titles[i+1:]...)
			return
		}
	}
}

func decodeChunkMeta(metadata map[string]string) ChunkMeta {
	meta := ChunkMeta{CourseTitle: metadata[metaCourseTitle]}
	if raw, ok := metadata[metaLessonNumber]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			meta.LessonNumber = &n
		}
	}
	if raw, ok := metadata[metaChunkIndex]; ok {
		meta.ChunkIndex, _ = strconv.Atoi(raw)
	}
	return meta
}
