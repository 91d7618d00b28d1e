package email

import (
	"bytes"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/mo-amir99/course-platform-go/pkg/config"
)

// Client sends mail through an SMTP relay.
type Client struct {
	host     string
	port     string
	username string
	password string
	from     string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewClient creates a new email client.
func NewClient(cfg config.EmailConfig) *Client {
	return &Client{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
}

// Options represents the options for sending an email.
type Options struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Send delivers one message wrapped in the common layout.
func (c *Client) Send(opts Options) error {
	if strings.TrimSpace(opts.To) == "" {
		return fmt.Errorf("email recipient is empty")
	}

	message := c.buildMessage(opts.To, opts.Subject, wrapHTMLTemplate(opts.HTML), opts.Text)

	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}
	addr := fmt.Sprintf("%s:%s", c.host, c.port)

	if err := c.sendMail(addr, auth, c.from, []string{opts.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", opts.To, err)
	}
	return nil
}

// SendNotification sends a plain notification; body lines become paragraphs in the HTML part.
func (c *Client) SendNotification(to, subject, body string) error {
	var html strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		html.WriteString("<p>")
		html.WriteString(template.HTMLEscapeString(line))
		html.WriteString("</p>\n")
	}

	return c.Send(Options{
		To:      to,
		Subject: subject,
		HTML:    html.String(),
		Text:    body,
	})
}

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin: 0; padding: 32px; font-family: Arial, sans-serif; background: #f9f9f9;">
    <div style="max-width: 600px; margin: auto; background: #fff; border-radius: 8px; padding: 32px; font-size: 16px; color: #333;">
        {{.Content}}
        <div style="margin-top: 32px; text-align: center; color: #aaa; font-size: 12px;">&copy; {{.Year}} Course Platform</div>
    </div>
</body>
</html>`))

func wrapHTMLTemplate(content string) string {
	var buf bytes.Buffer
	data := map[string]interface{}{
		"Content": template.HTML(content),
		"Year":    time.Now().Year(),
	}
	if err := layout.Execute(&buf, data); err != nil {
		return content
	}
	return buf.String()
}

const boundary = "course-platform-boundary"

// buildMessage constructs a multipart/alternative message with headers.
func (c *Client) buildMessage(to, subject, html, text string) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", c.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if text != "" {
		fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, text)
	}
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, html)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return msg.String()
}
