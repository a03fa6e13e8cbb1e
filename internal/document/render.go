// Package document renders the client-facing job proposal.
package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"jobtalk/internal/domain"
)

// Proposal is everything the document shows.
type Proposal struct {
	Title              string
	Fields             domain.CategorizedFields
	LineItems          []domain.LineItem
	Images             []domain.ImageAttachment
	DownPaymentPercent float64
	Terms              string
	Date               time.Time
}

type Document struct {
	Markdown    string
	HTML        string
	Total       float64
	DownPayment float64
	Remainder   float64
	// BudgetLines is only set when there are no line items.
	BudgetLines []BudgetLine
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Render builds the proposal. It does no I/O; the same proposal always
// yields the same document.
func Render(p Proposal) (Document, error) {
	var doc Document

	if len(p.LineItems) > 0 {
		doc.Total = domain.SumLineItems(p.LineItems)
	} else if !domain.IsSentinel(p.Fields.Budget) {
		doc.BudgetLines, doc.Total = ParseBudget(p.Fields.Budget)
	}
	doc.DownPayment = roundCents(doc.Total * p.DownPaymentPercent / 100)
	doc.Remainder = roundCents(doc.Total - doc.DownPayment)

	var md strings.Builder
	writeProposal(&md, p, doc)
	doc.Markdown = md.String()

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(doc.Markdown), &buf); err != nil {
		return Document{}, fmt.Errorf("converting proposal to HTML: %w", err)
	}
	doc.HTML = buf.String()

	return doc, nil
}

func writeProposal(w *strings.Builder, p Proposal, doc Document) {
	title := p.Title
	if strings.TrimSpace(title) == "" {
		title = "Job Proposal"
	}
	fmt.Fprintf(w, "# %s\n\n", escape(title))
	fmt.Fprintf(w, "*Date: %s*\n\n", p.Date.Format("January 2, 2006"))

	c := p.Fields.ContactInformation
	w.WriteString("## Contact Information\n\n")
	fmt.Fprintf(w, "- **Name:** %s\n", field(c.Name))
	fmt.Fprintf(w, "- **Address:** %s\n", field(c.Address))
	fmt.Fprintf(w, "- **Phone:** %s\n", field(c.Phone))
	fmt.Fprintf(w, "- **Email:** %s\n\n", field(c.Email))

	fmt.Fprintf(w, "## Scope of Work\n\n%s\n\n", paragraphs(p.Fields.ScopeOfWork))
	fmt.Fprintf(w, "## Timeline\n\n%s\n\n", paragraphs(p.Fields.Timeline))

	w.WriteString("## Budget\n\n")
	if len(p.LineItems) > 0 {
		w.WriteString("| Quantity | Item | Unit Price | Subtotal |\n")
		w.WriteString("|---:|---|---:|---:|\n")
		for _, item := range p.LineItems {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
				formatQuantity(item.Quantity), escape(item.ItemName), formatMoney(item.Price), formatMoney(item.Subtotal()))
		}
		fmt.Fprintf(w, "\n**Total:** %s\n\n", formatMoney(doc.Total))
	} else {
		writeBudgetText(w, p.Fields.Budget, doc)
	}

	w.WriteString("## Payment Terms\n\n")
	fmt.Fprintf(w, "- **Down payment (%s):** %s\n", formatPercent(p.DownPaymentPercent), formatMoney(doc.DownPayment))
	fmt.Fprintf(w, "- **Remaining balance:** %s\n\n", formatMoney(doc.Remainder))
	fmt.Fprintf(w, "%s\n", paragraphs(p.Terms))

	if len(p.Images) > 0 {
		w.WriteString("\n## Attachments\n\n")
		for i, img := range p.Images {
			writeImage(w, i+1, img)
		}
	}
}

func writeBudgetText(w *strings.Builder, budget string, doc Document) {
	if len(doc.BudgetLines) == 0 {
		fmt.Fprintf(w, "%s\n\n", field(budget))
		return
	}

	var found bool
	for _, line := range doc.BudgetLines {
		if len(line.Amounts) == 0 {
			fmt.Fprintf(w, "- %s\n", escapeLine(line.Text))
			continue
		}
		found = true
		amounts := make([]string, len(line.Amounts))
		for i, a := range line.Amounts {
			amounts[i] = formatMoney(a)
		}
		fmt.Fprintf(w, "- %s: **%s**\n", escapeLine(line.Text), strings.Join(amounts, ", "))
	}
	w.WriteString("\n")

	if found {
		fmt.Fprintf(w, "**Estimated total:** %s\n\n", formatMoney(doc.Total))
	}
}

func writeImage(w *strings.Builder, n int, img domain.ImageAttachment) {
	alt := fmt.Sprintf("Image %d", n)
	if embeddable(img.ContentType) && len(img.Data) > 0 {
		fmt.Fprintf(w, "![%s](data:%s;base64,%s)\n\n", alt, img.ContentType, base64.StdEncoding.EncodeToString(img.Data))
	}
	desc := strings.TrimSpace(img.Description)
	if desc == "" {
		desc = "No description"
	}
	fmt.Fprintf(w, "**%s:** %s\n\n", alt, escape(desc))
}

func embeddable(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return true
	}
	return false
}

// field renders a single-line value; blanks become domain.NotProvided.
func field(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.NotProvided
	}
	return escape(strings.Join(strings.Fields(v), " "))
}

// paragraphs keeps blank-line separated paragraphs of v.
func paragraphs(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.NotProvided
	}
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(v, "\r\n", "\n"), "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines := strings.Split(p, "\n")
		for i, line := range lines {
			lines[i] = escapeLine(line)
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	return strings.Join(out, "\n\n")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"|", `\|`,
	"!", `\!`,
)

// escape keeps user text literal: no markdown formatting and no raw HTML.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}

var orderedMarker = regexp.MustCompile(`^\d{1,9}[.)]`)

// escapeLine escapes s and any marker at the start of the line that would
// open a list, a thematic break, a setext heading or a fence. Leading
// whitespace is dropped so the line cannot become an indented code block.
func escapeLine(s string) string {
	s = escape(strings.TrimLeft(s, " \t"))
	if s == "" {
		return s
	}
	switch s[0] {
	case '-', '+', '=', '~':
		return `\` + s
	}
	if m := orderedMarker.FindString(s); m != "" {
		return m[:len(m)-1] + `\` + s[len(m)-1:]
	}
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Defaults fill in parameters FromParams does not receive.
type Defaults struct {
	Title              string
	DownPaymentPercent float64
	Terms              string
	Date               time.Time
}

// FromParams builds a proposal from the flat document parameters: scope,
// name, address, phone, email, timeline, budget, downPayment and terms.
// Missing text parameters read domain.NotProvided.
func FromParams(values url.Values, d Defaults) Proposal {
	get := func(key string) string {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			return v
		}
		return domain.NotProvided
	}

	percent := d.DownPaymentPercent
	if v, err := strconv.ParseFloat(strings.TrimSpace(values.Get("downPayment")), 64); err == nil && v >= 0 && v <= 100 {
		percent = v
	}

	terms := strings.TrimSpace(values.Get("terms"))
	if terms == "" {
		terms = d.Terms
	}

	return Proposal{
		Title: d.Title,
		Fields: domain.CategorizedFields{
			ScopeOfWork: get("scope"),
			ContactInformation: domain.ContactInformation{
				Name:    get("name"),
				Address: get("address"),
				Phone:   get("phone"),
				Email:   get("email"),
			},
			Timeline: get("timeline"),
			Budget:   get("budget"),
		},
		DownPaymentPercent: percent,
		Terms:              terms,
		Date:               d.Date,
	}
}

// DefaultParams returns the defaults used when no configuration overrides them.
func DefaultParams(date time.Time) Defaults {
	return Defaults{
		DownPaymentPercent: domain.DefaultDownPaymentPercent,
		Terms:              domain.DefaultTerms,
		Date:               date,
	}
}
