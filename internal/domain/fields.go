package domain

import "strings"

// NotMentioned is what the categorizer reports for information absent from the transcript.
const NotMentioned = "Not mentioned"

// NotProvided is what the document shows for a parameter that was never supplied.
const NotProvided = "Not provided"

type ContactInformation struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type CategorizedFields struct {
	ScopeOfWork        string             `json:"scopeOfWork"`
	ContactInformation ContactInformation `json:"contactInformation"`
	Timeline           string             `json:"timeline"`
	Budget             string             `json:"budget"`
}

// Top-level field names accepted by the field store.
const (
	FieldScopeOfWork = "scopeOfWork"
	FieldTimeline    = "timeline"
	FieldBudget      = "budget"
)

// Contact sub-field names.
const (
	ContactName    = "name"
	ContactAddress = "address"
	ContactPhone   = "phone"
	ContactEmail   = "email"
)

// EmptyFields returns a field set where every value is the NotMentioned sentinel.
func EmptyFields() CategorizedFields {
	return CategorizedFields{}.WithDefaults()
}

// WithDefaults replaces every blank value with NotMentioned.
func (f CategorizedFields) WithDefaults() CategorizedFields {
	return CategorizedFields{
		ScopeOfWork: orSentinel(f.ScopeOfWork, NotMentioned),
		ContactInformation: ContactInformation{
			Name:    orSentinel(f.ContactInformation.Name, NotMentioned),
			Address: orSentinel(f.ContactInformation.Address, NotMentioned),
			Phone:   orSentinel(f.ContactInformation.Phone, NotMentioned),
			Email:   orSentinel(f.ContactInformation.Email, NotMentioned),
		},
		Timeline: orSentinel(f.Timeline, NotMentioned),
		Budget:   orSentinel(f.Budget, NotMentioned),
	}
}

// IsSentinel reports whether v carries no information.
func IsSentinel(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == NotMentioned || v == NotProvided
}

func orSentinel(v, sentinel string) string {
	if strings.TrimSpace(v) == "" {
		return sentinel
	}
	return v
}
