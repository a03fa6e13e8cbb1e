package application

import "jobtalk/internal/domain"

type ViewKind string

const (
	ViewReadOnly ViewKind = "read_only"
	ViewEditable ViewKind = "editable"
	ViewCustom   ViewKind = "custom"
)

// FieldView is one section of the intake form. Kind is fixed when the view
// is built; Custom views carry their inputs in Fields.
type FieldView struct {
	Kind   ViewKind    `json:"kind"`
	Name   string      `json:"name"`
	Title  string      `json:"title"`
	Text   string      `json:"text"`
	Fields []FieldView `json:"fields,omitempty"`
}

func ReadOnly(name, title, text string) FieldView {
	return FieldView{Kind: ViewReadOnly, Name: name, Title: title, Text: text}
}

func Editable(name, title, text string) FieldView {
	return FieldView{Kind: ViewEditable, Name: name, Title: title, Text: text}
}

func Custom(name, title string, fields ...FieldView) FieldView {
	return FieldView{Kind: ViewCustom, Name: name, Title: title, Fields: fields}
}

// BuildViews lays out the transcript and the four categorized sections.
// Contact inputs show sentinel values as blank so the user can type over them.
func BuildViews(state SessionState, snap Snapshot) []FieldView {
	var views []FieldView
	if state.Transcript != "" {
		views = append(views, ReadOnly("transcript", "Transcription", state.Transcript))
	}
	if !snap.Categorized {
		return views
	}

	f := snap.Fields
	c := f.ContactInformation
	return append(views,
		Custom("contactInformation", "Contact Information",
			Editable(domain.ContactName, "Name", blankSentinel(c.Name)),
			Editable(domain.ContactAddress, "Address", blankSentinel(c.Address)),
			Editable(domain.ContactPhone, "Phone", blankSentinel(c.Phone)),
			Editable(domain.ContactEmail, "Email", blankSentinel(c.Email)),
		),
		Editable(domain.FieldScopeOfWork, "Scope of Work", f.ScopeOfWork),
		Editable(domain.FieldTimeline, "Timeline", f.Timeline),
		Editable(domain.FieldBudget, "Budget", f.Budget),
	)
}

func blankSentinel(v string) string {
	if v == domain.NotMentioned {
		return ""
	}
	return v
}
