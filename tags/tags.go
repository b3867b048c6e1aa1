package tags

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/internal/ids"
	"github.com/giftwish/giftwish/internal/localization"
)

var (
	// ErrTagNotFound indicates no tag matches the id.
	ErrTagNotFound = errors.New("tag not found")
	// ErrDuplicateTag indicates a tag with the same title already exists.
	ErrDuplicateTag = errors.New("tag title already in use")
	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("invalid tag input")
)

// Tag labels gifts for filtering. The title is stored per locale; titles are
// unique case-insensitively across all locales.
type Tag struct {
	ID             string               `json:"id"`
	TitleLocalized localization.TextMap `json:"titleLocalized"`
	Color          string               `json:"color,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// View is a tag shaped for one caller, with the title resolved to their
// locale.
type View struct {
	Tag
	Title string `json:"title"`
}

// Localize resolves the tag's title for locale.
func (t Tag) Localize(locale string) View {
	return View{Tag: t, Title: t.TitleLocalized.Resolve(locale)}
}

// WriteInput carries a create or patch payload, nil meaning "unchanged".
// The title uses raw JSON so a malformed map is distinguishable from an
// absent field.
type WriteInput struct {
	TitleLocalized json.RawMessage `json:"titleLocalized"`
	Color          *string         `json:"color" validate:"omitempty,hexcolor"`
}

// Repo persists tags.
type Repo interface {
	Create(ctx context.Context, tag Tag) error
	Find(ctx context.Context, id string) (Tag, error)
	// FindByTitle matches any localized title case-insensitively.
	FindByTitle(ctx context.Context, title string) (Tag, error)
	List(ctx context.Context) ([]Tag, error)
	Update(ctx context.Context, tag Tag) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Service implements tag management.
type Service struct {
	repo     Repo
	validate *validator.Validate
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes the tag Service.
func NewService(repo Repo, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] tag repo is required")
	}

	service := &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// Create stores a new tag with a unique title.
func (s *Service) Create(ctx context.Context, input WriteInput) (*Tag, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}
	title, err := s.parseTitle(input.TitleLocalized)
	if err != nil {
		return nil, err
	}
	if len(title) == 0 {
		return nil, errors.Wrap(ErrValidation, "titleLocalized must include at least one locale entry")
	}
	if err := s.checkTitleFree(ctx, title, ""); err != nil {
		return nil, err
	}

	tag := Tag{
		ID:             ids.New(),
		TitleLocalized: title,
		CreatedAt:      s.nowTime(),
	}
	if input.Color != nil {
		tag.Color = *input.Color
	}
	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, errors.Wrap(err, "[Create] repo.Create")
	}
	return &tag, nil
}

// List returns all tags.
func (s *Service) List(ctx context.Context) ([]Tag, error) {
	tags, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[List] repo.List")
	}
	return tags, nil
}

// Update applies a partial update to a tag.
func (s *Service) Update(ctx context.Context, id string, input WriteInput) (*Tag, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	tag, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.TitleLocalized != nil {
		title, err := s.parseTitle(input.TitleLocalized)
		if err != nil {
			return nil, err
		}
		if len(title) == 0 {
			return nil, errors.Wrap(ErrValidation, "titleLocalized must include at least one locale entry")
		}
		if err := s.checkTitleFree(ctx, title, id); err != nil {
			return nil, err
		}
		tag.TitleLocalized = title
	}
	if input.Color != nil {
		tag.Color = *input.Color
	}

	if err := s.repo.Update(ctx, tag); err != nil {
		return nil, errors.Wrap(err, "[Update] repo.Update")
	}
	return &tag, nil
}

// Delete removes a tag.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return errors.Wrap(err, "[Delete] repo.Delete")
	}
	if !deleted {
		return ErrTagNotFound
	}
	return nil
}

func (s *Service) parseTitle(raw json.RawMessage) (localization.TextMap, error) {
	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(ErrValidation, "titleLocalized must be an object map of locale to string")
	}
	title, err := localization.ParseTextMap(values)
	if err != nil {
		return nil, errors.Wrapf(ErrValidation, "titleLocalized: %s", err.Error())
	}
	return title, nil
}

// checkTitleFree rejects a title map when any of its values collides with
// another tag's title in any locale.
func (s *Service) checkTitleFree(ctx context.Context, title localization.TextMap, selfID string) error {
	for _, text := range title {
		existing, err := s.repo.FindByTitle(ctx, text)
		if err == nil && existing.ID != selfID {
			return ErrDuplicateTag
		}
	}
	return nil
}
