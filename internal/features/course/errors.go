package course

import "errors"

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrTitleRequired  = errors.New("course title is required")
	ErrTitleTooLong   = errors.New("course title must be at most 200 characters")
	ErrNegativePrice  = errors.New("course price must not be negative")
)
