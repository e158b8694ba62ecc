package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: tmplCacheEntry}

	Attachment struct {
		Filename    string
		ContentType string
		Content     *bytes.Buffer
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		Subject         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	// Mailer renders EmailMessage templates from an embedded template dir.
	Mailer struct {
		conf      *Config
		templates tmplCache
	}
)

// NewMailer parses all templates under assets/templates/email in fsys.
// Template pairs share a base name; ".txt" and ".gohtml" extensions are
// rendered as the text and HTML alternatives respectively. Files prefixed
// with "_" are bases included by the others.
func NewMailer(conf *Config, fsys fs.FS, logger Logger) *Mailer {
	m := &Mailer{conf: conf, templates: make(tmplCache)}

	root := "assets/templates/email"
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		logger.Error("parsing email templates", err)
		return m
	}

	for _, entry := range entries {
		fname := entry.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		cache, ok := m.templates[name]
		if !ok {
			cache = make(tmplCacheEntry)
			m.templates[name] = cache
		}

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, path.Join(root, "_base.txt"), path.Join(root, fname))
			if err != nil {
				logger.Error("parsing email template "+fname, err)
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			cache[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, path.Join(root, "_base.gohtml"), path.Join(root, fname))
			if err != nil {
				logger.Error("parsing email template "+fname, err)
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			cache[ext] = tmpl
		}
	}
	return m
}

// Render fills msg.TextContent and msg.HTMLContent.
func (m *Mailer) Render(msg *EmailMessage) error {
	if err := m.renderText(msg); err != nil {
		return err
	}
	return m.renderHTML(msg)
}

func (m *Mailer) contextData(msg *EmailMessage) ContextData {
	return ContextData{
		AppName:         m.conf.AppName,
		Subject:         msg.Subject,
		FrontendBaseURL: m.conf.FrontendBaseURL,
		Data:            msg.TemplateData,
	}
}

func (m *Mailer) renderText(msg *EmailMessage) error {
	if msg.BodyStr != "" {
		msg.TextContent = msg.BodyStr
		return nil
	} else if msg.TemplateName == "" {
		return nil
	}

	cache, ok := m.templates[msg.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", msg.TemplateName)
	}
	// a pair may ship without a text variant
	tmpl, ok := cache[".txt"].(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "_base.txt", m.contextData(msg)); err != nil {
		return errors.Wrap(err, "rendering text template")
	}
	msg.TextContent = buff.String()
	return nil
}

func (m *Mailer) renderHTML(msg *EmailMessage) error {
	if msg.TemplateName == "" {
		return nil
	}

	cache, ok := m.templates[msg.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", msg.TemplateName)
	}
	// a pair may ship without an HTML variant
	tmpl, ok := cache[".gohtml"].(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, "_base.gohtml", m.contextData(msg)); err != nil {
		return errors.Wrap(err, "rendering html template")
	}
	msg.HTMLContent = buff.String()
	return nil
}

func (msg *EmailMessage) HasRecipients() bool { return len(msg.To) > 0 }
func (msg *EmailMessage) HasContent() bool {
	return (msg.TextContent != "") || (msg.HTMLContent != "")
}
func (msg *EmailMessage) HasAttachments() bool { return len(msg.Attachments) > 0 }
