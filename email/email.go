// Package email sends transactional mail over plain SMTP.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/avelic/academy/core/token"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Links are the frontend URLs a token gets appended to.
type Links struct {
	ActivationURL string
	RecoveryURL   string
}

type Email struct {
	address  string
	password string
	host     string
	port     int
	links    Links
	tmpl     *template.Template
}

func New(address string, password string, host string, port int, links Links) *Email {
	tmpl := template.Must(template.ParseFS(templates, "templates/*.tmpl"))
	return &Email{
		address:  address,
		password: password,
		host:     host,
		port:     port,
		links:    links,
		tmpl:     tmpl,
	}
}

func (e *Email) SendToken(scope string, tok string, to string) error {
	var name, link string
	switch scope {
	case token.ScopeActivation:
		name, link = "activation.tmpl", e.links.ActivationURL
	case token.ScopeRecovery:
		name, link = "recovery.tmpl", e.links.RecoveryURL
	default:
		return fmt.Errorf("no email template for token scope %q", scope)
	}

	data := struct {
		From string
		To   string
		Link string
	}{
		From: e.address,
		To:   to,
		Link: fmt.Sprintf("%s?token=%s", link, tok),
	}

	var body bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("rendering email template %q: %w", name, err)
	}

	auth := smtp.PlainAuth("", e.address, e.password, e.host)
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.address, []string{to}, body.Bytes()); err != nil {
		return fmt.Errorf("sending %s email to %s: %w", scope, to, err)
	}
	return nil
}
