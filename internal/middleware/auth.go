package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/access"
	"github.com/mo-amir99/course-platform-go/internal/utils/jwt"
	"github.com/mo-amir99/course-platform-go/pkg/response"
)

const (
	actorKey  = "actor"
	userIDKey = "userId"
)

// User is the slice of the users table the middleware needs to resolve an actor.
type User struct {
	ID          uuid.UUID      `gorm:"column:id;primaryKey"`
	Email       string         `gorm:"column:email"`
	IsStaff     bool           `gorm:"column:is_staff"`
	IsSuperuser bool           `gorm:"column:is_superuser"`
	Groups      pq.StringArray `gorm:"column:groups;type:text[]"`
	Active      bool           `gorm:"column:is_active"`
	LastLogin   *time.Time     `gorm:"column:last_login"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// UserLoader fetches the current state of an account.
type UserLoader interface {
	LoadUser(ctx context.Context, id uuid.UUID) (User, error)
}

// ErrUserNotFound is returned by a UserLoader for unknown ids.
var ErrUserNotFound = errors.New("user not found")

type gormLoader struct {
	db *gorm.DB
}

// NewGormLoader loads users with a single primary key lookup.
func NewGormLoader(db *gorm.DB) UserLoader {
	return gormLoader{db: db}
}

func (l gormLoader) LoadUser(ctx context.Context, id uuid.UUID) (User, error) {
	var usr User
	err := l.db.WithContext(ctx).First(&usr, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return usr, ErrUserNotFound
	}
	return usr, err
}

// AuthMiddleware holds dependencies for authentication middleware
type AuthMiddleware struct {
	users     UserLoader
	jwtSecret string
	logger    *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(users UserLoader, jwtSecret string, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Required rejects requests without a valid bearer token for an active account.
func (m *AuthMiddleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.authenticate(c, true); !ok {
			return
		}
		c.Next()
	}
}

// Optional resolves the actor when a token is present and continues as
// anonymous when it is not. A present but invalid token is still rejected.
func (m *AuthMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.authenticate(c, false); !ok {
			return
		}
		c.Next()
	}
}

// The account is loaded on every request so role and active changes apply immediately.
func (m *AuthMiddleware) authenticate(c *gin.Context, required bool) (access.Actor, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if required {
			m.reject(c, http.StatusUnauthorized, "Authentication credentials were not provided", nil)
			return access.Actor{}, false
		}
		SetActor(c, access.Actor{})
		return access.Actor{}, true
	}

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		m.reject(c, http.StatusUnauthorized, "No token provided", nil)
		return access.Actor{}, false
	}

	claims, err := jwt.VerifyToken(token, m.jwtSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			m.reject(c, http.StatusUnauthorized, "Token expired", err)
		} else {
			m.reject(c, http.StatusUnauthorized, "Invalid token", err)
		}
		return access.Actor{}, false
	}

	if claims.UserID == uuid.Nil || claims.Purpose != jwt.PurposeAccess {
		m.reject(c, http.StatusUnauthorized, "Invalid token payload", nil)
		return access.Actor{}, false
	}

	usr, err := m.users.LoadUser(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			m.reject(c, http.StatusUnauthorized, "User not found", err)
		} else {
			m.reject(c, http.StatusInternalServerError, "Internal server error", err)
		}
		return access.Actor{}, false
	}

	if !usr.Active {
		m.reject(c, http.StatusUnauthorized, "User account is disabled", nil)
		return access.Actor{}, false
	}

	actor := ActorFor(usr)
	SetActor(c, actor)
	return actor, true
}

func (m *AuthMiddleware) reject(c *gin.Context, status int, message string, err error) {
	response.ErrorWithLog(m.logger, c, status, message, err)
	c.Abort()
}

// ActorFor converts an account row into an evaluator actor.
func ActorFor(usr User) access.Actor {
	return access.Actor{
		ID:        usr.ID,
		Role:      access.ResolveRole(true, usr.IsStaff, usr.IsSuperuser, usr.Groups),
		Superuser: usr.IsSuperuser,
	}
}

// SetActor stores the resolved actor on the request.
func SetActor(c *gin.Context, actor access.Actor) {
	c.Set(actorKey, actor)
	if actor.Authenticated() {
		c.Set(userIDKey, actor.ID)
	}
}

// ActorFromContext returns the request's actor; anonymous when none was resolved.
func ActorFromContext(c *gin.Context) access.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(access.Actor); ok {
			return actor
		}
	}
	return access.Actor{}
}
