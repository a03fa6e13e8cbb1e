// Package extract holds the categorization prompt shared by every LLM
// provider and turns a model reply into domain fields.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"jobtalk/internal/domain"
)

// Instructions is the system prompt. It carries the whole field-extraction
// policy; the transcript goes in the user turn built by Prompt.
const Instructions = `You are an AI assistant specializing in analyzing transcribed text from construction job conversations. Your task is to categorize the information and present it professionally.

Categorize the information into the following sections and structure the output as a JSON object:

1.  **scopeOfWork**: Identify all details related to the project's tasks, deliverables, and objectives. Rewrite this information into professional-sounding paragraphs that instill customer confidence. Be friendly and down to earth. Avoid business jargon. Emphasize the care that will be taken by the service provider and the care that will be taken with the customer property. If no scope details are found, set this field to "Not mentioned".
2.  **contactInformation**: Extract any names, phone numbers, email addresses, company affiliations, and physical addresses mentioned. Structure this as an object with the following keys: 'name', 'address', 'phone', 'email'.
    *   For the 'address' field: If an address is mentioned but seems incomplete (e.g., missing city, state, or zip code), use your knowledge to try and complete it based on the available information like street name and potentially mentioned city/region. If you cannot confidently complete it, provide the address as extracted.
    *   For each key ('name', 'address', 'phone', 'email'): If the corresponding information is not found in the text, set the value for that key to "Not mentioned".
3.  **timeline**: Identify all dates, deadlines, durations, or scheduling mentions. Rewrite this information into professional-sounding paragraphs outlining the expected timeframe, conveying efficiency and reliability. Be friendly and down to earth. Avoid business jargon. If no timeline details are found, set this field to "Not mentioned".
4.  **budget**: Extract any cost estimates, payment terms, or financial details mentioned. List them clearly. If no budget details are found, set this field to "Not mentioned".

Ensure the 'scopeOfWork' and 'timeline' fields contain the rewritten professional paragraphs, and 'contactInformation' is an object containing the extracted (and potentially completed/formatted) details or "Not mentioned" for each field.

Respond ONLY with valid JSON (no markdown, no backticks):
{
  "scopeOfWork": "string",
  "contactInformation": {"name": "string", "address": "string", "phone": "string", "email": "string"},
  "timeline": "string",
  "budget": "string"
}`

// Prompt wraps the transcript for the user turn.
func Prompt(transcript string) string {
	return fmt.Sprintf("Analyze the following transcribed text:\n'''\n%s\n'''", transcript)
}

var nullableString = map[string]interface{}{
	"type": []interface{}{"string", "null"},
}

// Schema is the JSON schema a reply must satisfy. Fields may be absent; they
// are filled with the sentinel afterwards.
var Schema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"scopeOfWork": nullableString,
		"contactInformation": map[string]interface{}{
			"type": []interface{}{"object", "null"},
			"properties": map[string]interface{}{
				"name":    nullableString,
				"address": nullableString,
				"phone":   nullableString,
				"email":   nullableString,
			},
		},
		"timeline": nullableString,
		"budget":   nullableString,
	},
}

var schemaLoader = gojsonschema.NewGoLoader(Schema)

// Parse validates a model reply and returns the fields with every blank value
// set to domain.NotMentioned. Markdown code fences and prose around the JSON
// object are ignored.
func Parse(reply string) (domain.CategorizedFields, error) {
	body := StripFences(reply)
	if body == "" {
		return domain.CategorizedFields{}, fmt.Errorf("%w: empty reply", domain.ErrMalformedResult)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("%w: %v", domain.ErrMalformedResult, err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("validating reply: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return domain.CategorizedFields{}, fmt.Errorf("%w: %s", domain.ErrMalformedResult, strings.Join(errs, "; "))
	}

	var fields domain.CategorizedFields
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("%w: %v", domain.ErrMalformedResult, err)
	}
	return fields.WithDefaults(), nil
}

// StripFences removes a surrounding ```json fence and anything outside the
// outermost braces.
func StripFences(reply string) string {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
