package application

import (
	"context"

	"jobtalk/internal/domain"
)

// Categorizer extracts the job fields from a transcript. Implementations may
// leave fields blank; the pipeline fills them with the sentinel.
type Categorizer interface {
	Categorize(ctx context.Context, transcript string) (domain.CategorizedFields, error)
}
