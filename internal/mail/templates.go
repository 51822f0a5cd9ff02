package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222; max-width: 600px;">
{{template "body" .}}
<p style="color: #777; font-size: 12px;">Campus Lost &amp; Found. You can review all updates on your <a href="{{.BaseURL}}/notifications">notifications page</a>.</p>
</body></html>{{end}}`

var bodies = map[string]string{
	"match": `{{define "body"}}<h2>Possible match for your lost item</h2>
<p>Hi {{.RecipientName}},</p>
<p>A found item <strong>{{.FoundTitle}}</strong> looks like your lost item <strong>{{.LostTitle}}</strong>.</p>
<p><a href="{{.BaseURL}}/items/{{.ItemID}}">View the found item</a></p>{{end}}`,

	"claim_submitted": `{{define "body"}}<h2>New claim received</h2>
<p>Hi {{.RecipientName}},</p>
<p>Someone has claimed your item <strong>{{.ItemTitle}}</strong>.</p>
<div style="background-color: #e7f3ff; border: 1px solid #bee5eb; padding: 15px; border-radius: 5px;">
<p><strong>Name:</strong> {{.OtherName}}</p>
<p><strong>Email:</strong> <a href="mailto:{{.OtherEmail}}">{{.OtherEmail}}</a></p>
<p><strong>Proof:</strong> <em>{{.Proof}}</em></p>
</div>
<p>Please review it in your <a href="{{.BaseURL}}/claims">claims dashboard</a> and approve or reject it.</p>{{end}}`,

	"claim_approved": `{{define "body"}}<h2>Claim approved</h2>
<p>Hi {{.RecipientName}},</p>
<p>Your claim for <strong>{{.ItemTitle}}</strong> has been approved.</p>
<div style="background-color: #d4edda; border: 1px solid #c3e6cb; padding: 15px; border-radius: 5px;">
<p><strong>Owner:</strong> {{.OtherName}}</p>
<p><strong>Email:</strong> <a href="mailto:{{.OtherEmail}}">{{.OtherEmail}}</a></p>
</div>
<p>Please contact the owner to arrange pickup.</p>{{end}}`,

	"claim_rejected": `{{define "body"}}<h2>Claim not approved</h2>
<p>Hi {{.RecipientName}},</p>
<p>Your claim for <strong>{{.ItemTitle}}</strong> was not approved.</p>
{{if .Reason}}<p><strong>Reason:</strong> {{.Reason}}</p>{{end}}
<p>You can submit another claim if you have additional proof.</p>{{end}}`,

	"notice": `{{define "body"}}<p>Hi {{.RecipientName}},</p>
<p>{{.Message}}</p>
<p><a href="{{.BaseURL}}/items/{{.ItemID}}">View the item</a></p>{{end}}`,
}

// TemplateData feeds every email template. Fields a template does not use are ignored.
type TemplateData struct {
	BaseURL       string
	RecipientName string
	ItemID        int64
	ItemTitle     string
	FoundTitle    string
	LostTitle     string
	OtherName     string
	OtherEmail    string
	Proof         string
	Reason        string
	Message       string
}

// Renderer builds notification emails with links into the frontend.
type Renderer struct {
	baseURL   string
	templates map[string]*template.Template
}

// NewRenderer parses the email templates. baseURL is the frontend root used for links.
func NewRenderer(baseURL string) (*Renderer, error) {
	r := &Renderer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		templates: make(map[string]*template.Template, len(bodies)),
	}
	for name, body := range bodies {
		t, err := template.New(name).Parse(layout)
		if err != nil {
			return nil, fmt.Errorf("parsing email layout: %w", err)
		}
		if _, err := t.Parse(body); err != nil {
			return nil, fmt.Errorf("parsing %s email: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

func (r *Renderer) render(name, subject string, data TemplateData) (*Email, error) {
	data.BaseURL = r.baseURL
	var buf bytes.Buffer
	if err := r.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("rendering %s email: %w", name, err)
	}
	return &Email{Subject: subject, HTML: buf.String()}, nil
}

// Match renders the email telling a lost item's owner about a matching found item.
// data.ItemID is the found item.
func (r *Renderer) Match(data TemplateData) (*Email, error) {
	return r.render("match", fmt.Sprintf("Good news! A found item matches your lost item %q", data.LostTitle), data)
}

// ClaimSubmitted renders the email to an item owner about a new claim.
func (r *Renderer) ClaimSubmitted(data TemplateData) (*Email, error) {
	return r.render("claim_submitted", fmt.Sprintf("New claim received for your item %q", data.ItemTitle), data)
}

// ClaimApproved renders the email to a claimant whose claim was approved.
func (r *Renderer) ClaimApproved(data TemplateData) (*Email, error) {
	return r.render("claim_approved", fmt.Sprintf("Great news! Your claim for %q has been approved!", data.ItemTitle), data)
}

// ClaimRejected renders the email to a claimant whose claim was rejected.
func (r *Renderer) ClaimRejected(data TemplateData) (*Email, error) {
	return r.render("claim_rejected", fmt.Sprintf("Update on your claim for %q", data.ItemTitle), data)
}

// Notice renders a generic email carrying a notification message.
func (r *Renderer) Notice(data TemplateData) (*Email, error) {
	return r.render("notice", "You have a new Lost & Found notification", data)
}
