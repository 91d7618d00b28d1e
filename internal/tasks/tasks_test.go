package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/subscription"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/internal/testutil"
)

func createUser(t *testing.T, db *gorm.DB, email string, input user.CreateInput) user.User {
	t.Helper()
	input.Email = email
	input.Password = "password123"
	usr, err := user.Create(context.Background(), db, input)
	require.NoError(t, err)
	return usr
}

func setLastLogin(t *testing.T, db *gorm.DB, u user.User, at time.Time) {
	t.Helper()
	require.NoError(t, user.RecordLogin(context.Background(), db, u.ID, at))
}

func TestIntegration_Tasks(t *testing.T) {
	db := testutil.Postgres(t, &user.User{}, &course.Course{}, &subscription.Subscription{})
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inactivity", func(t *testing.T) {
		testutil.Truncate(t, db, "subscriptions", "courses", "users")

		stale := createUser(t, db, "stale@example.com", user.CreateInput{})
		recent := createUser(t, db, "recent@example.com", user.CreateInput{})
		staff := createUser(t, db, "staff@example.com", user.CreateInput{IsStaff: true})
		root := createUser(t, db, "root@example.com", user.CreateInput{IsSuperuser: true})
		never := createUser(t, db, "never@example.com", user.CreateInput{})

		setLastLogin(t, db, stale, now.AddDate(0, 0, -31))
		setLastLogin(t, db, recent, now.AddDate(0, 0, -29))
		setLastLogin(t, db, staff, now.AddDate(0, 0, -60))
		setLastLogin(t, db, root, now.AddDate(0, 0, -90))

		job := NewInactivityJob(db, 0, testutil.DiscardLogger())
		job.now = func() time.Time { return now }
		assert.Equal(t, InactivityJobName, job.Name())

		blocked, err := job.Run(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, blocked)

		want := map[string]bool{
			stale.Email:  false,
			recent.Email: true,
			staff.Email:  true,
			root.Email:   true,
			never.Email:  true,
		}
		for email, active := range want {
			got, err := user.GetByEmail(ctx, db, email)
			require.NoError(t, err)
			assert.Equal(t, active, got.Active, email)
		}

		// same day again is a no-op
		blocked, err = job.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, blocked)
		require.NoError(t, job.Execute(ctx))
	})

	t.Run("notification store", func(t *testing.T) {
		testutil.Truncate(t, db, "subscriptions", "courses", "users")

		author := createUser(t, db, "author@example.com", user.CreateInput{FirstName: "Ann", LastName: "Smith"})
		anonymous := createUser(t, db, "plain@example.com", user.CreateInput{})
		first := createUser(t, db, "first@example.com", user.CreateInput{})
		second := createUser(t, db, "second@example.com", user.CreateInput{})

		c, err := course.Create(ctx, db, course.CreateInput{Title: "Go basics", OwnerID: &author.ID})
		require.NoError(t, err)
		_, err = subscription.Toggle(ctx, db, first.ID, c.ID)
		require.NoError(t, err)
		_, err = subscription.Toggle(ctx, db, second.ID, c.ID)
		require.NoError(t, err)

		store := NewNotificationStore(db)

		title, err := store.CourseTitle(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Go basics", title)

		recipients, err := store.Subscribers(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, recipients, 2)
		assert.ElementsMatch(t, []string{"first@example.com", "second@example.com"},
			[]string{recipients[0].Email, recipients[1].Email})

		name, err := store.UpdaterName(ctx, author.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ann Smith", name)

		name, err = store.UpdaterName(ctx, anonymous.ID)
		require.NoError(t, err)
		assert.Equal(t, "plain@example.com", name)

		mailer := &stubMailer{}
		job := NewCourseUpdateJob(store, mailer, "http://localhost:8000", testutil.DiscardLogger())

		outcome, err := job.Run(ctx, course.UpdateNotice{CourseID: c.ID, UpdatedBy: &author.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, outcome.SubscribersNotified)
		assert.Len(t, mailer.sent, 2)

		require.NoError(t, course.Delete(ctx, db, c.ID))
		outcome, err = job.Run(ctx, course.UpdateNotice{CourseID: c.ID})
		require.NoError(t, err)
		assert.Equal(t, StatusNotFound, outcome.Status)
	})
}
