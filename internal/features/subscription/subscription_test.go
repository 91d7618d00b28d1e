package subscription

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/access"
	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/internal/middleware"
	"github.com/mo-amir99/course-platform-go/internal/testutil"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped pg error", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation}), true},
		{"other pg error", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, false},
		{"plain", assert.AnError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestHandler_RequiresAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api"), NewHandler(nil, testutil.DiscardLogger()), func(c *gin.Context) {
		middleware.SetActor(c, access.Actor{})
	})

	for _, path := range []string{"/api/courses/" + uuid.NewString() + "/subscription", "/api/my-subscriptions"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

type fixture struct {
	db     *gorm.DB
	user   user.User
	course course.Course
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.Postgres(t, &user.User{}, &course.Course{}, &Subscription{})
	ctx := t.Context()

	u, err := user.Create(ctx, db, user.CreateInput{Email: "sub@example.com", Password: "password1"})
	require.NoError(t, err)
	c, err := course.Create(ctx, db, course.CreateInput{Title: "Databases"})
	require.NoError(t, err)

	return fixture{db: db, user: u, course: c}
}

func countRows(t *testing.T, db *gorm.DB, userID, courseID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&Subscription{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&n).Error)
	return n
}

func TestToggle_Integration(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	t.Run("involution", func(t *testing.T) {
		first, err := Toggle(ctx, f.db, f.user.ID, f.course.ID)
		require.NoError(t, err)
		assert.True(t, first.Subscribed)
		assert.Equal(t, "Databases", first.CourseTitle)

		subscribed, err := Status(ctx, f.db, f.user.ID, f.course.ID)
		require.NoError(t, err)
		assert.True(t, subscribed)

		second, err := Toggle(ctx, f.db, f.user.ID, f.course.ID)
		require.NoError(t, err)
		assert.False(t, second.Subscribed)
		assert.Zero(t, countRows(t, f.db, f.user.ID, f.course.ID))
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := Toggle(ctx, f.db, f.user.ID, uuid.New())
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})

	t.Run("concurrent toggles keep at most one row", func(t *testing.T) {
		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := Toggle(ctx, f.db, f.user.ID, f.course.ID); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.LessOrEqual(t, countRows(t, f.db, f.user.ID, f.course.ID), int64(1))
	})
}

func TestHandler_Integration(t *testing.T) {
	f := setup(t)
	testutil.Truncate(t, f.db, "subscriptions")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api"), NewHandler(f.db, testutil.DiscardLogger()), func(c *gin.Context) {
		middleware.SetActor(c, access.Actor{ID: f.user.ID, Role: access.Regular})
	})

	call := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	path := "/api/courses/" + f.course.ID.String() + "/subscription"

	w := call(http.MethodPost, path)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var toggled struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.Equal(t, StatusResponse{
		CourseID:     f.course.ID,
		CourseTitle:  "Databases",
		IsSubscribed: true,
		Message:      messageSubscribed,
	}, toggled.Data)

	w = call(http.MethodGet, "/api/my-subscriptions")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data struct {
			Count   int64            `json:"count"`
			Results []map[string]any `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.EqualValues(t, 1, listed.Data.Count)
	require.Len(t, listed.Data.Results, 1)
	assert.Equal(t, "Databases", listed.Data.Results[0]["title"])

	w = call(http.MethodPost, path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_subscribed":false`)

	w = call(http.MethodGet, "/api/courses/"+uuid.NewString()+"/subscription")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
