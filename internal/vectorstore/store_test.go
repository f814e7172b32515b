package vectorstore

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-rag/internal/models"
)

// hashEmbedding is a deterministic word-bag embedding. Identical texts map
// to identical vectors and shared words raise similarity, which is enough
// to exercise ranking and resolution against a real database.
func hashEmbedding(dim int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[h.Sum32()%uint32(dim)]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
		return vec, nil
	}
}

func newTestStore(t *testing.T, maxResults int) *Store {
	t.Helper()
	store, err := NewStore("", hashEmbedding(64), maxResults)
	require.NoError(t, err)
	return store
}

func intPtr(n int) *int { return &n }

func chunk(course string, lesson *int, index int, content string) models.CourseChunk {
	return models.CourseChunk{Content: content, CourseTitle: course, LessonNumber: lesson, ChunkIndex: index}
}

func TestAddAndSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Other Course"}))
	indexed := "Lesson 1 content: photosynthesis converts sunlight into chemical energy"
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, indexed),
		chunk("Other Course", intPtr(1), 0, "Lesson 1 content: relational databases store rows inside tables"),
	}))

	results, err := store.Search(ctx, indexed, "", nil)
	require.NoError(t, err)
	require.Len(t, results.Hits, 2)

	top := results.Hits[0]
	assert.Contains(t, top.Content, "photosynthesis")
	assert.Equal(t, "Intro to X", top.Meta.CourseTitle)
	require.NotNil(t, top.Meta.LessonNumber)
	assert.Equal(t, 1, *top.Meta.LessonNumber)
	assert.Equal(t, 0, top.Meta.ChunkIndex)
	assert.InDelta(t, 0, float64(top.Distance), 1e-3)
	assert.Less(t, top.Distance, results.Hits[1].Distance)
}

func TestSearchCourseFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Other Course"}))
	shared := "identical chunk text used for filter checks"
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, shared),
		chunk("Other Course", intPtr(1), 0, shared),
	}))

	results, err := store.Search(ctx, shared, "Other Course", nil)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	assert.Equal(t, "Other Course", results.Hits[0].Meta.CourseTitle)
}

func TestSearchLessonFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	shared := "the same words appear in every chunk here"
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", nil, 0, shared),
		chunk("Intro to X", intPtr(1), 0, shared),
		chunk("Intro to X", intPtr(2), 0, shared),
	}))

	results, err := store.Search(ctx, shared, "", intPtr(2))
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	require.NotNil(t, results.Hits[0].Meta.LessonNumber)
	assert.Equal(t, 2, *results.Hits[0].Meta.LessonNumber)

	t.Run("combined with course filter", func(t *testing.T) {
		results, err := store.Search(ctx, shared, "Intro to X", intPtr(1))
		require.NoError(t, err)
		require.Len(t, results.Hits, 1)
		assert.Equal(t, 1, *results.Hits[0].Meta.LessonNumber)
	})
}

func TestSearchUnknownCourse(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	_, err := store.Search(ctx, "anything at all", "Nonexistent Course", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.Contains(t, err.Error(), "Nonexistent Course")
}

func TestSearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	results, err := store.Search(ctx, "anything at all", "", nil)
	require.NoError(t, err)
	assert.True(t, results.IsEmpty())

	// a cataloged course with no chunks still yields empty, not an error
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Empty Course"}))
	results, err = store.Search(ctx, "anything at all", "Empty Course", nil)
	require.NoError(t, err)
	assert.True(t, results.IsEmpty())
}

func TestSearchQueryTextRequired(t *testing.T) {
	store := newTestStore(t, 5)
	_, err := store.Search(context.Background(), "", "", nil)
	assert.Error(t, err)
}

func TestSearchClampsMaxResults(t *testing.T) {
	ctx := context.Background()

	t.Run("corpus smaller than max", func(t *testing.T) {
		store := newTestStore(t, 5)
		require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
		require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
			chunk("Intro to X", intPtr(0), 0, "first chunk about algebra"),
			chunk("Intro to X", intPtr(0), 1, "second chunk about geometry"),
		}))

		results, err := store.Search(ctx, "algebra geometry chunk", "", nil)
		require.NoError(t, err)
		assert.Len(t, results.Hits, 2)
	})

	t.Run("corpus larger than max", func(t *testing.T) {
		store := newTestStore(t, 2)
		require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
		require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
			chunk("Intro to X", intPtr(0), 0, "alpha words"),
			chunk("Intro to X", intPtr(0), 1, "beta words"),
			chunk("Intro to X", intPtr(0), 2, "gamma words"),
		}))

		results, err := store.Search(ctx, "words", "", nil)
		require.NoError(t, err)
		assert.Len(t, results.Hits, 2)
	})
}

func TestSearchStableTieOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	same := "word for word identical chunk content"
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, same),
	}))
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(2), 0, same),
	}))

	for i := 0; i < 3; i++ {
		results, err := store.Search(ctx, same, "", nil)
		require.NoError(t, err)
		require.Len(t, results.Hits, 2)
		assert.Equal(t, results.Hits[0].Distance, results.Hits[1].Distance)
		assert.Equal(t, 1, *results.Hits[0].Meta.LessonNumber, "earlier insertion must sort first on ties")
		assert.Equal(t, 2, *results.Hits[1].Meta.LessonNumber)
	}
}

func TestAddCourseMetadataUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X", Instructor: "Alan Kay"}))
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X", Instructor: "Barbara Liskov"}))

	assert.Equal(t, 1, store.CourseCount())
	assert.Equal(t, []string{"Intro to X"}, store.CourseTitles())

	meta, err := store.CourseMeta(ctx, "Intro to X")
	require.NoError(t, err)
	assert.Equal(t, "Barbara Liskov", meta.Instructor)
}

func TestAddCourseContentReplacesSameIdentity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, "original wording of the chunk"),
	}))
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, "revised wording of the chunk"),
	}))

	results, err := store.Search(ctx, "wording of the chunk", "", nil)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	assert.Contains(t, results.Hits[0].Content, "revised")
}

func TestResolveCourseName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Advanced Databases"}))

	t.Run("exact title", func(t *testing.T) {
		title, err := store.ResolveCourseName(ctx, "Intro to X")
		require.NoError(t, err)
		assert.Equal(t, "Intro to X", title)
	})

	t.Run("partial name", func(t *testing.T) {
		title, err := store.ResolveCourseName(ctx, "Intro")
		require.NoError(t, err)
		assert.Equal(t, "Intro to X", title)
	})

	t.Run("empty catalog", func(t *testing.T) {
		empty := newTestStore(t, 5)
		_, err := empty.ResolveCourseName(ctx, "Anything")
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})
}

func TestCourseMetaRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	course := &models.Course{
		Title:      "Intro to X",
		Link:       "https://example.com/course",
		Instructor: "Colt Steele",
		Lessons: []models.Lesson{
			{Number: 0, Title: "Introduction", Link: "https://example.com/lesson0"},
			{Number: 1, Title: "Getting Started"},
		},
	}
	require.NoError(t, store.AddCourseMetadata(ctx, course))

	meta, err := store.CourseMeta(ctx, "Intro to X")
	require.NoError(t, err)
	assert.Equal(t, "Intro to X", meta.Title)
	assert.Equal(t, "https://example.com/course", meta.Link)
	assert.Equal(t, "Colt Steele", meta.Instructor)
	require.Len(t, meta.Lessons, 2)
	assert.Equal(t, "Introduction", meta.Lessons[0].Title)

	link, err := store.LessonLink(ctx, "Intro to X", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/lesson0", link)

	link, err = store.LessonLink(ctx, "Intro to X", 7)
	require.NoError(t, err)
	assert.Empty(t, link)

	courseLink, err := store.CourseLink(ctx, "Intro to X")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/course", courseLink)

	_, err = store.CourseMeta(ctx, "Missing Course")
	assert.Error(t, err)
}

func TestDeleteCourse(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Other Course"}))
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, "chunk that should disappear"),
		chunk("Other Course", intPtr(1), 0, "chunk that should survive"),
	}))

	require.NoError(t, store.DeleteCourse(ctx, "Intro to X"))

	assert.False(t, store.HasCourse(ctx, "Intro to X"))
	assert.True(t, store.HasCourse(ctx, "Other Course"))
	assert.Equal(t, 1, store.CourseCount())
	assert.Equal(t, []string{"Other Course"}, store.CourseTitles())

	results, err := store.Search(ctx, "chunk that should disappear survive", "", nil)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	assert.Equal(t, "Other Course", results.Hits[0].Meta.CourseTitle)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, "some indexed text"),
	}))

	require.NoError(t, store.Clear(ctx))

	assert.Equal(t, 0, store.CourseCount())
	assert.Empty(t, store.CourseTitles())
	assert.False(t, store.HasCourse(ctx, "Intro to X"))

	results, err := store.Search(ctx, "some indexed text", "", nil)
	require.NoError(t, err)
	assert.True(t, results.IsEmpty())

	// the store stays usable after a wipe
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	assert.Equal(t, 1, store.CourseCount())
}

func TestPersistentReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir, hashEmbedding(64), 5)
	require.NoError(t, err)
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	require.NoError(t, store.AddCourseContent(ctx, []models.CourseChunk{
		chunk("Intro to X", intPtr(1), 0, "persisted chunk text"),
	}))

	reopened, err := NewStore(dir, hashEmbedding(64), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.CourseCount())
	assert.True(t, reopened.HasCourse(ctx, "Intro to X"))

	results, err := reopened.Search(ctx, "persisted chunk text", "", nil)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)

	// titles repopulate through the startup ingestion pass
	require.NoError(t, reopened.AddCourseMetadata(ctx, &models.Course{Title: "Intro to X"}))
	assert.Equal(t, []string{"Intro to X"}, reopened.CourseTitles())
}

func TestCourseTitlesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 5)

	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Zeta Course"}))
	require.NoError(t, store.AddCourseMetadata(ctx, &models.Course{Title: "Alpha Course"}))

	assert.Equal(t, []string{"Zeta Course", "Alpha Course"}, store.CourseTitles())
}
