package lesson

import "errors"

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrTitleRequired  = errors.New("lesson title is required")
	ErrTitleTooLong   = errors.New("lesson title must be at most 200 characters")
	ErrUnknownCourse  = errors.New("course does not exist")
)
