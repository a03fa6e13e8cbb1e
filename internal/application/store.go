package application

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklog/ulid/v2"

	"jobtalk/internal/domain"
)

var (
	ErrImageLimit = errors.New("image limit reached")
	ErrNotImage   = errors.New("file is not an image")
)

// FieldStore is the editable form state of one session. It is not safe for
// concurrent use; the owning session serializes access.
type FieldStore struct {
	fields      domain.CategorizedFields
	categorized bool
	lineItems   []domain.LineItem
	images      []domain.ImageAttachment
	downPayment float64
	terms       string
	entropy     io.Reader
}

func NewFieldStore() *FieldStore {
	s := &FieldStore{entropy: ulid.Monotonic(rand.Reader, 0)}
	s.Reset()
	return s
}

// Reset returns the store to its initial state in one step.
func (s *FieldStore) Reset() {
	s.fields = domain.CategorizedFields{}
	s.categorized = false
	s.lineItems = nil
	s.images = nil
	s.downPayment = domain.DefaultDownPaymentPercent
	s.terms = domain.DefaultTerms
}

// Load replaces the fields with a fresh categorization result.
func (s *FieldStore) Load(fields domain.CategorizedFields) {
	s.fields = fields.WithDefaults()
	s.categorized = true
}

func (s *FieldStore) Categorized() bool {
	return s.categorized
}

func (s *FieldStore) Fields() domain.CategorizedFields {
	return s.fields
}

// SetField updates scopeOfWork, timeline or budget. Contact details go
// through SetContactField.
func (s *FieldStore) SetField(name, value string) error {
	switch name {
	case domain.FieldScopeOfWork:
		s.fields.ScopeOfWork = value
	case domain.FieldTimeline:
		s.fields.Timeline = value
	case domain.FieldBudget:
		s.fields.Budget = value
	default:
		return &domain.ValidationError{Field: "field", Reason: fmt.Sprintf("unknown field %q", name)}
	}
	return nil
}

func (s *FieldStore) SetContactField(name, value string) error {
	c := &s.fields.ContactInformation
	switch name {
	case domain.ContactName:
		c.Name = value
	case domain.ContactAddress:
		c.Address = value
	case domain.ContactPhone:
		c.Phone = value
	case domain.ContactEmail:
		c.Email = value
	default:
		return &domain.ValidationError{Field: "contact", Reason: fmt.Sprintf("unknown contact field %q", name)}
	}
	return nil
}

// AddLineItem appends a validated item. Invalid input leaves the store untouched.
func (s *FieldStore) AddLineItem(quantity float64, itemName string, price float64) (domain.LineItem, error) {
	itemName = strings.TrimSpace(itemName)

	errs := validation.Errors{
		"quantity": validation.Validate(quantity,
			validation.Required.Error("must be a positive number"),
			validation.By(finite),
			validation.Min(0.0).Exclusive().Error("must be a positive number"),
		),
		"itemName": validation.Validate(itemName,
			validation.Required.Error("item name is required"),
		),
		"price": validation.Validate(price,
			validation.By(finite),
			validation.Min(0.0).Error("must be a non-negative number"),
		),
	}.Filter()
	if errs != nil {
		return domain.LineItem{}, &domain.ValidationError{Field: "lineItem", Reason: errs.Error(), Err: errs}
	}

	item := domain.LineItem{
		ID:       s.newID(),
		Quantity: quantity,
		ItemName: itemName,
		Price:    price,
	}
	s.lineItems = append(s.lineItems, item)
	return item, nil
}

func (s *FieldStore) RemoveLineItem(id string) {
	for i, item := range s.lineItems {
		if item.ID == id {
			s.lineItems = append(s.lineItems[:i:i], s.lineItems[i+1:]...)
			return
		}
	}
}

func (s *FieldStore) LineItems() []domain.LineItem {
	return append([]domain.LineItem(nil), s.lineItems...)
}

// Total is the sum of quantity*price over the current items.
func (s *FieldStore) Total() float64 {
	return domain.SumLineItems(s.lineItems)
}

// AddImage attaches an image with an empty description.
func (s *FieldStore) AddImage(contentType string, data []byte) (domain.ImageAttachment, error) {
	if len(s.images) >= domain.MaxImages {
		return domain.ImageAttachment{}, &domain.ValidationError{
			Field:  "image",
			Reason: fmt.Sprintf("you can only attach up to %d images", domain.MaxImages),
			Err:    ErrImageLimit,
		}
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return domain.ImageAttachment{}, &domain.ValidationError{
			Field:  "image",
			Reason: fmt.Sprintf("content type %q is not an image", contentType),
			Err:    ErrNotImage,
		}
	}
	if len(data) == 0 {
		return domain.ImageAttachment{}, &domain.ValidationError{Field: "image", Reason: "image is empty"}
	}

	img := domain.ImageAttachment{
		ID:          s.newID(),
		ContentType: contentType,
		Data:        data,
	}
	s.images = append(s.images, img)
	return img, nil
}

func (s *FieldStore) SetImageDescription(id, description string) error {
	for i := range s.images {
		if s.images[i].ID == id {
			s.images[i].Description = description
			return nil
		}
	}
	return &domain.ValidationError{Field: "image", Reason: fmt.Sprintf("no image with id %q", id)}
}

func (s *FieldStore) RemoveImage(id string) {
	for i, img := range s.images {
		if img.ID == id {
			s.images = append(s.images[:i:i], s.images[i+1:]...)
			return
		}
	}
}

func (s *FieldStore) Images() []domain.ImageAttachment {
	return append([]domain.ImageAttachment(nil), s.images...)
}

func (s *FieldStore) Image(id string) (domain.ImageAttachment, bool) {
	for _, img := range s.images {
		if img.ID == id {
			return img, true
		}
	}
	return domain.ImageAttachment{}, false
}

func (s *FieldStore) SetDownPayment(percent float64) error {
	err := validation.Validate(percent,
		validation.By(finite),
		validation.Min(0.0).Error("must be between 0 and 100"),
		validation.Max(100.0).Error("must be between 0 and 100"),
	)
	if err != nil {
		return &domain.ValidationError{Field: "downPaymentPercent", Reason: err.Error(), Err: err}
	}
	s.downPayment = percent
	return nil
}

func (s *FieldStore) DownPayment() float64 {
	return s.downPayment
}

func (s *FieldStore) SetTerms(terms string) {
	s.terms = strings.TrimSpace(terms)
}

func (s *FieldStore) Terms() string {
	return s.terms
}

// Snapshot copies the store so it can be read after the session lock is released.
type Snapshot struct {
	Fields             domain.CategorizedFields
	Categorized        bool
	LineItems          []domain.LineItem
	Images             []domain.ImageAttachment
	DownPaymentPercent float64
	Terms              string
}

func (s *FieldStore) Snapshot() Snapshot {
	return Snapshot{
		Fields:             s.fields,
		Categorized:        s.categorized,
		LineItems:          s.LineItems(),
		Images:             s.Images(),
		DownPaymentPercent: s.downPayment,
		Terms:              s.terms,
	}
}

func (s *FieldStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func finite(value interface{}) error {
	if f, ok := value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return errors.New("must be a finite number")
	}
	return nil
}
