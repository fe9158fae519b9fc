package mailer

import (
	"bytes"
	"errors"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
)

const TemplateWelcome = "welcome"

var ErrUnknownTemplate = errors.New("unknown email template")

type emailTemplate struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var templates = map[string]emailTemplate{
	TemplateWelcome: {
		subject: texttpl.Must(texttpl.New("subject").Parse(`Welcome to {{.AppName}}`)),
		text: texttpl.Must(texttpl.New("text").Parse(`Hi {{.Name}},

Your {{.AppName}} account for {{.Email}} is ready. You can sign in right away.
`)),
		html: htmpl.Must(htmpl.New("html").Parse(`<p>Hi {{.Name}},</p>
<p>Your {{.AppName}} account for <strong>{{.Email}}</strong> is ready. You can sign in right away.</p>
`)),
	},
}

// Render resolves a job into subject, text and html. Jobs without a template
// are returned as-is.
func Render(job EmailJob) (subject, text, html string, err error) {
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	t, ok := templates[job.Template]
	if !ok {
		return "", "", "", fmt.Errorf("%w %q", ErrUnknownTemplate, job.Template)
	}
	var sb, tb, hb bytes.Buffer
	if err := t.subject.Execute(&sb, job.Data); err != nil {
		return "", "", "", err
	}
	if err := t.text.Execute(&tb, job.Data); err != nil {
		return "", "", "", err
	}
	if err := t.html.Execute(&hb, job.Data); err != nil {
		return "", "", "", err
	}
	return sb.String(), tb.String(), hb.String(), nil
}
