package tags_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftwish/giftwish/internal/utils"
	"github.com/giftwish/giftwish/tags"
	faketagrepo "github.com/giftwish/giftwish/tags/repofakes"
)

func newService(t *testing.T) *tags.Service {
	t.Helper()
	service, err := tags.NewService(faketagrepo.NewFakeTagRepo())
	require.NoError(t, err)
	return service
}

func titleJSON(title string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"en": title})
	return raw
}

func TestCreateAndList(t *testing.T) {
	service := newService(t)

	created, err := service.Create(context.Background(), tags.WriteInput{
		TitleLocalized: titleJSON("Birthday"),
		Color:          utils.Ptr("#ff0000"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Birthday", created.TitleLocalized["en"])

	listed, err := service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestCreateValidation(t *testing.T) {
	service := newService(t)

	_, err := service.Create(context.Background(), tags.WriteInput{})
	assert.ErrorIs(t, err, tags.ErrValidation)

	_, err = service.Create(context.Background(), tags.WriteInput{
		TitleLocalized: json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, tags.ErrValidation)

	_, err = service.Create(context.Background(), tags.WriteInput{
		TitleLocalized: json.RawMessage(`{"nope!":"Birthday"}`),
	})
	assert.ErrorIs(t, err, tags.ErrValidation)

	_, err = service.Create(context.Background(), tags.WriteInput{
		TitleLocalized: titleJSON("Birthday"),
		Color:          utils.Ptr("red"),
	})
	assert.ErrorIs(t, err, tags.ErrValidation)
}

func TestCreateRejectsDuplicateTitleCaseInsensitive(t *testing.T) {
	service := newService(t)

	_, err := service.Create(context.Background(), tags.WriteInput{TitleLocalized: titleJSON("Birthday")})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), tags.WriteInput{TitleLocalized: titleJSON("BIRTHDAY")})
	assert.ErrorIs(t, err, tags.ErrDuplicateTag)

	// A collision in any locale counts.
	_, err = service.Create(context.Background(), tags.WriteInput{
		TitleLocalized: json.RawMessage(`{"de":"birthday"}`),
	})
	assert.ErrorIs(t, err, tags.ErrDuplicateTag)
}

func TestUpdate(t *testing.T) {
	service := newService(t)

	created, err := service.Create(context.Background(), tags.WriteInput{TitleLocalized: titleJSON("Birthday")})
	require.NoError(t, err)
	other, err := service.Create(context.Background(), tags.WriteInput{TitleLocalized: titleJSON("Christmas")})
	require.NoError(t, err)

	// Renaming onto another tag's title conflicts.
	_, err = service.Update(context.Background(), created.ID, tags.WriteInput{TitleLocalized: titleJSON("christmas")})
	assert.ErrorIs(t, err, tags.ErrDuplicateTag)

	// Keeping your own title is fine; color patches independently.
	updated, err := service.Update(context.Background(), other.ID, tags.WriteInput{
		TitleLocalized: titleJSON("Christmas"),
		Color:          utils.Ptr("#00ff00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", updated.Color)

	_, err = service.Update(context.Background(), "missing", tags.WriteInput{})
	assert.ErrorIs(t, err, tags.ErrTagNotFound)
}

func TestLocalize(t *testing.T) {
	tag := tags.Tag{TitleLocalized: map[string]string{"en": "Birthday", "de": "Geburtstag"}}

	assert.Equal(t, "Geburtstag", tag.Localize("de").Title)
	assert.Equal(t, "Birthday", tag.Localize("pl").Title)
	assert.Equal(t, "Birthday", tag.Localize("").Title)
}

func TestDelete(t *testing.T) {
	service := newService(t)

	created, err := service.Create(context.Background(), tags.WriteInput{TitleLocalized: titleJSON("Birthday")})
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), created.ID))
	assert.ErrorIs(t, service.Delete(context.Background(), created.ID), tags.ErrTagNotFound)
}
