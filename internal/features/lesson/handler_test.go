package lesson

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/course-platform-go/internal/access"
	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/internal/middleware"
	"github.com/mo-amir99/course-platform-go/internal/testutil"
	"github.com/mo-amir99/course-platform-go/pkg/validation"
)

type notices []course.UpdateNotice

func (n *notices) CourseUpdated(_ context.Context, notice course.UpdateNotice) error {
	*n = append(*n, notice)
	return nil
}

func newTestRouter(t *testing.T, h *Handler, actor access.Actor) *gin.Engine {
	t.Helper()
	require.NoError(t, validation.RegisterBindings())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	setActor := func(c *gin.Context) {
		middleware.SetActor(c, actor)
		c.Next()
	}
	RegisterRoutes(router.Group("/api"), h, setActor, setActor)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate_RejectsForeignVideoHost(t *testing.T) {
	h := NewHandler(nil, testutil.DiscardLogger(), nil)
	actor := access.Actor{ID: uuid.New(), Role: access.Regular}

	body := `{"title":"Intro","course":"` + uuid.NewString() + `","video_link":"https://vimeo.com/42"}`
	w := do(newTestRouter(t, h, actor), http.MethodPost, "/api/lessons", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"video_link"`)
}

func TestLessons_Integration(t *testing.T) {
	db := testutil.Postgres(t, &user.User{}, &course.Course{}, &Lesson{})
	sent := &notices{}
	h := NewHandler(db, testutil.DiscardLogger(), sent)
	stamp := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return stamp }
	ctx := t.Context()

	author, err := user.Create(ctx, db, user.CreateInput{Email: "author@example.com", Password: "password1"})
	require.NoError(t, err)
	c, err := course.Create(ctx, db, course.CreateInput{Title: "Go", OwnerID: &author.ID})
	require.NoError(t, err)

	authorActor := access.Actor{ID: author.ID, Role: access.Regular}

	w := do(newTestRouter(t, h, authorActor), http.MethodPost, "/api/lessons",
		`{"title":"Intro","course":"`+c.ID.String()+`","video_link":"https://www.youtube.com/watch?v=1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data Lesson `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	lessonID := created.Data.ID

	require.Len(t, *sent, 1)
	assert.Equal(t, []string{"lessons"}, (*sent)[0].ChangedFields)
	assert.Equal(t, c.ID, (*sent)[0].CourseID)

	stored, err := course.Get(ctx, db, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUpdated)
	assert.True(t, stored.LastUpdated.Equal(stamp))

	t.Run("unknown course", func(t *testing.T) {
		w := do(newTestRouter(t, h, authorActor), http.MethodPost, "/api/lessons",
			`{"title":"Lost","course":"`+uuid.NewString()+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"course"`)
	})

	t.Run("moderator edits, stranger cannot", func(t *testing.T) {
		moderator := access.Actor{ID: uuid.New(), Role: access.Moderator}
		w := do(newTestRouter(t, h, moderator), http.MethodPatch, "/api/lessons/"+lessonID.String(), `{"video_link":""}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, *sent, 2)

		got, err := Get(ctx, db, lessonID)
		require.NoError(t, err)
		assert.Nil(t, got.VideoLink)

		stranger := access.Actor{ID: uuid.New(), Role: access.Regular}
		w = do(newTestRouter(t, h, stranger), http.MethodPatch, "/api/lessons/"+lessonID.String(), `{"title":"x"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unchanged edit is not announced", func(t *testing.T) {
		before := len(*sent)
		h.now = func() time.Time { return stamp.Add(time.Hour) }
		defer func() { h.now = func() time.Time { return stamp } }()

		for _, body := range []string{`{}`, `{"title":" Intro ","video_link":""}`} {
			w := do(newTestRouter(t, h, authorActor), http.MethodPatch, "/api/lessons/"+lessonID.String(), body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}
		assert.Len(t, *sent, before)

		stored, err := course.Get(ctx, db, c.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastUpdated)
		assert.True(t, stored.LastUpdated.Equal(stamp))

		w := do(newTestRouter(t, h, authorActor), http.MethodPatch, "/api/lessons/"+lessonID.String(), `{"description":"basics"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, *sent, before+1)
	})

	t.Run("list by course", func(t *testing.T) {
		w := do(newTestRouter(t, h, access.Actor{}), http.MethodGet, "/api/lessons?course="+c.ID.String(), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Intro")

		w = do(newTestRouter(t, h, access.Actor{}), http.MethodGet, "/api/lessons?course="+uuid.NewString(), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "Intro")
	})

	t.Run("course deletion cascades", func(t *testing.T) {
		require.NoError(t, course.Delete(ctx, db, c.ID))
		_, err := Get(ctx, db, lessonID)
		assert.ErrorIs(t, err, ErrLessonNotFound)
	})
}
