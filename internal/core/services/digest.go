package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/normalisers/html"
)

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format(time.DateOnly) },
	"join": strings.Join,
}).Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Name}},</p>
<p>{{.Total}} new ownership {{if eq .Total 1}}filing matches{{else}}filings match{{end}} your subscriptions.</p>
{{range .Sections}}
<h2>{{.Title}}</h2>
<table>
<tr><th>Form</th><th>Filed</th><th>Issuer</th><th>Reporting owners</th><th>Filing</th></tr>
{{range .Rows}}<tr><td>{{.FormType}}</td><td>{{date .FiledDate}}</td><td>{{.Issuer}}</td><td>{{join .Owners ", "}}</td><td><a href="{{.URL}}">{{.ID}}</a></td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))

type digestRow struct {
	ID        string
	FormType  string
	FiledDate time.Time
	Issuer    string
	Owners    []string
	URL       string
}

type digestSectionView struct {
	Title string
	Rows  []digestRow
}

type digestView struct {
	Name     string
	Total    int
	Sections []digestSectionView
}

// DigestComposer renders digest emails.
type DigestComposer struct {
	archiveURL string
}

// NewDigestComposer creates a composer linking filings under archiveURL.
func NewDigestComposer(archiveURL string) *DigestComposer {
	if archiveURL != "" && !strings.HasSuffix(archiveURL, "/") {
		archiveURL += "/"
	}
	return &DigestComposer{archiveURL: archiveURL}
}

// Compose builds the consolidated digest message for a user.
func (c *DigestComposer) Compose(user *domain.User, sections []domain.DigestSection) (driven.Message, error) {
	view := digestView{Name: user.Name}
	if view.Name == "" {
		view.Name = user.Email
	}

	for _, section := range sections {
		sv := digestSectionView{Title: section.Subscription.Description}
		if sv.Title == "" {
			sv.Title = "Subscription " + section.Subscription.ID
		}
		for i := range section.Filings {
			sv.Rows = append(sv.Rows, c.row(&section.Filings[i]))
		}
		view.Total += len(section.Filings)
		view.Sections = append(view.Sections, sv)
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return driven.Message{}, fmt.Errorf("render digest: %w", err)
	}

	noun := "filings"
	if view.Total == 1 {
		noun = "filing"
	}
	return driven.Message{
		To:      user.Email,
		ToName:  user.Name,
		Subject: fmt.Sprintf("%d new ownership %s", view.Total, noun),
		HTML:    buf.String(),
		Text:    html.PlainText(buf.String()),
	}, nil
}

func (c *DigestComposer) row(f *domain.OwnershipFiling) digestRow {
	row := digestRow{
		ID:        f.ID,
		FormType:  f.FormType,
		FiledDate: f.FiledDate,
		Issuer:    f.IssuerName,
		URL:       c.archiveURL + strings.TrimPrefix(f.SourcePath, "/"),
	}
	if f.IssuerCIK != "" {
		if row.Issuer == "" {
			row.Issuer = "CIK " + f.IssuerCIK
		} else {
			row.Issuer += " (" + f.IssuerCIK + ")"
		}
	}

	if f.FormData != nil {
		for _, owner := range f.FormData.ReportingOwners {
			if owner.ID.Name != nil && *owner.ID.Name != "" {
				row.Owners = append(row.Owners, *owner.ID.Name)
			}
		}
	}
	if len(row.Owners) == 0 {
		row.Owners = f.OwnerCIKs
	}
	return row
}
