package faketagrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/giftwish/giftwish/tags"
)

var _ tags.Repo = (*FakeTagRepo)(nil)

type FakeTagRepo struct {
	tags map[string]tags.Tag
	lock sync.RWMutex
}

func NewFakeTagRepo() *FakeTagRepo {
	return &FakeTagRepo{tags: make(map[string]tags.Tag)}
}

func (tr *FakeTagRepo) Create(_ context.Context, tag tags.Tag) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.tags[tag.ID] = tag
	return nil
}

func (tr *FakeTagRepo) Find(_ context.Context, id string) (tags.Tag, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	tag, ok := tr.tags[id]
	if !ok {
		return tags.Tag{}, tags.ErrTagNotFound
	}
	return tag, nil
}

func (tr *FakeTagRepo) FindByTitle(_ context.Context, title string) (tags.Tag, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	for _, tag := range tr.tags {
		for _, text := range tag.TitleLocalized {
			if strings.EqualFold(text, title) {
				return tag, nil
			}
		}
	}
	return tags.Tag{}, tags.ErrTagNotFound
}

func (tr *FakeTagRepo) List(_ context.Context) ([]tags.Tag, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	out := make([]tags.Tag, 0, len(tr.tags))
	for _, tag := range tr.tags {
		out = append(out, tag)
	}
	// Oldest first, id as the tiebreak, matching the SQL order.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tr *FakeTagRepo) Update(_ context.Context, tag tags.Tag) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if _, ok := tr.tags[tag.ID]; !ok {
		return tags.ErrTagNotFound
	}
	tr.tags[tag.ID] = tag
	return nil
}

func (tr *FakeTagRepo) Delete(_ context.Context, id string) (bool, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if _, ok := tr.tags[id]; !ok {
		return false, nil
	}
	delete(tr.tags, id)
	return true, nil
}
