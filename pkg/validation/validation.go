// Package validation registers the custom binding tags used by request
// payloads and turns binding failures into field-level messages.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// YouTubeHost is the only host accepted for lesson videos.
const YouTubeHost = "www.youtube.com"

// ErrForeignVideoHost is returned for links outside YouTubeHost.
var ErrForeignVideoHost = errors.New("video link must point to " + YouTubeHost)

var registerOnce sync.Once

// YouTubeLink checks that raw is an absolute http(s) URL on YouTubeHost.
func YouTubeLink(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w, got %q", ErrForeignVideoHost, raw)
	}
	if !strings.EqualFold(u.Host, YouTubeHost) {
		return fmt.Errorf("%w, got %s", ErrForeignVideoHost, u.Host)
	}
	return nil
}

// An empty value passes so that clients can clear a link.
func youtubeTag(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	return value == "" || YouTubeLink(value) == nil
}

// RegisterBindings adds the "youtube" tag to gin's validator and reports JSON
// field names in errors. Safe to call more than once.
func RegisterBindings() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(jsonName)
		err = v.RegisterValidation("youtube", youtubeTag)
	})
	return err
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// Fields maps a binding error to field -> message. Errors that are not field
// validation failures are reported under "body".
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = message(fe)
		}
		return fields
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string]string{typeErr.Field: "must be a " + typeErr.Type.String()}
	}

	return map[string]string{"body": "malformed request body"}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "youtube":
		return ErrForeignVideoHost.Error()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
