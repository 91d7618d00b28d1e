package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/pkg/queue"
)

// TypeCourseUpdated is the queue message type for course update notices.
const TypeCourseUpdated = "course.updated"

// Registry routes queue messages to handlers by type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]queue.HandlerFunc
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{handlers: make(map[string]queue.HandlerFunc), logger: logger}
}

// Register binds taskType to handler, replacing any previous binding.
func (r *Registry) Register(taskType string, handler queue.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[taskType] = handler
}

// Types lists the registered message types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch is a queue.HandlerFunc. Unknown types fail so the queue
// dead-letters them after its retries.
func (r *Registry) Dispatch(ctx context.Context, msg queue.Message) error {
	r.mu.RLock()
	handler, ok := r.handlers[msg.Type]
	r.mu.RUnlock()

	if !ok {
		r.logger.Error("no handler for message", slog.String("type", msg.Type), slog.Int("attempts", msg.Attempts))
		return fmt.Errorf("unknown task type %q", msg.Type)
	}
	return handler(ctx, msg)
}

// CoursePublisher enqueues course update notices.
type CoursePublisher struct {
	publisher queue.Publisher
}

// NewCoursePublisher wraps publisher as a course.Notifier.
func NewCoursePublisher(publisher queue.Publisher) *CoursePublisher {
	return &CoursePublisher{publisher: publisher}
}

var _ course.Notifier = (*CoursePublisher)(nil)

// CourseUpdated implements course.Notifier.
func (p *CoursePublisher) CourseUpdated(ctx context.Context, notice course.UpdateNotice) error {
	msg, err := queue.NewMessage(TypeCourseUpdated, notice)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, msg)
}
