package subscription

import "errors"

var ErrCourseNotFound = errors.New("course not found")
