package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templatesFS embed.FS

type TemplateRender struct {
	templates map[string]*template.Template
}

func NewTemplateRender() *TemplateRender {
	return &TemplateRender{
		templates: make(map[string]*template.Template),
	}
}

func (r *TemplateRender) LoadTemplate(name string) (*template.Template, error) {
	if tmpl, ok := r.templates[name]; ok {
		return tmpl, nil
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/"+name+".html")
	if err != nil {
		return nil, err
	}

	r.templates[name] = tmpl
	return tmpl, nil
}

func (r *TemplateRender) Render(name string, data interface{}) (string, error) {
	tmpl, err := r.LoadTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

type SMTPMailer struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	BaseURL string
	Render  *TemplateRender
}

func (m *SMTPMailer) SendActivationEmail(to, name, token string) error {
	activateURL := fmt.Sprintf("%s/activate-account?token=%s", m.BaseURL, token)

	data := map[string]interface{}{
		"Name":        name,
		"ActivateURL": activateURL,
	}

	body, err := m.Render.Render("activation", data)
	if err != nil {
		body = fmt.Sprintf(`
Hello %s,

Please activate your account by clicking the link below:
%s

This link will expire in 15 minutes.

If you didn't create an account, please ignore this email.

Best regards,
The BookGrid Team
`, name, activateURL)
	}

	return m.sendEmail(to, "Activate your account", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(to, name, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.BaseURL, token)

	data := map[string]interface{}{
		"Name":     name,
		"ResetURL": resetURL,
	}

	body, err := m.Render.Render("password_reset", data)
	if err != nil {
		body = fmt.Sprintf(`
Hello %s,

You requested to reset your password. Click the link below to proceed:
%s

This link will expire in 1 hour.

If you didn't request this, please ignore this email.

Best regards,
The BookGrid Team
`, name, resetURL)
	}

	return m.sendEmail(to, "Reset your password", body)
}

func (m *SMTPMailer) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)

	headers := make(map[string]string)
	headers["From"] = m.From
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message bytes.Buffer
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	return smtp.SendMail(addr, auth, m.From, []string{to}, message.Bytes())
}
