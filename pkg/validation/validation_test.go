package validation

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYouTubeLink(t *testing.T) {
	tests := []struct {
		link    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=abc", false},
		{"http://WWW.YOUTUBE.COM/watch?v=abc", false},
		{"https://youtube.com/watch?v=abc", true},
		{"https://vimeo.com/123", true},
		{"www.youtube.com/watch?v=abc", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			err := YouTubeLink(tt.link)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.ErrorIs(t, YouTubeLink("https://vimeo.com/1"), ErrForeignVideoHost)
}

type lessonPayload struct {
	Title     string  `json:"title" binding:"required"`
	VideoLink *string `json:"video_link" binding:"omitempty,youtube"`
}

func bind(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var p lessonPayload
	return c.ShouldBindJSON(&p)
}

func TestRegisterBindings_FieldMessages(t *testing.T) {
	require.NoError(t, RegisterBindings())
	require.NoError(t, RegisterBindings())

	assert.NoError(t, bind(t, `{"title":"Intro","video_link":"https://www.youtube.com/watch?v=1"}`))

	err := bind(t, `{"video_link":"https://vimeo.com/1"}`)
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"title":      "this field is required",
		"video_link": ErrForeignVideoHost.Error(),
	}, Fields(err))

	err = bind(t, `{"title":5}`)
	require.Error(t, err)
	assert.Contains(t, Fields(err), "title")

	err = bind(t, `{`)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"body": "malformed request body"}, Fields(err))
}
