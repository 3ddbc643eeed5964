package registry

import (
	"sort"

	"github.com/mcdev12/ballbattle/go/internal/models"
)

// Registry is this client's single owner of live avatars and items, keyed by
// identifier. It is not safe for concurrent use; the world loop owns it.
type Registry struct {
	avatars map[string]*models.Avatar
	items   map[int]models.Item
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		avatars: make(map[string]*models.Avatar),
		items:   make(map[int]models.Item),
	}
}

// PutAvatar stores a, replacing any avatar of the same participant
func (r *Registry) PutAvatar(a *models.Avatar) {
	r.avatars[a.ParticipantID] = a
}

// RemoveAvatar deletes the avatar and reports whether it existed
func (r *Registry) RemoveAvatar(id string) bool {
	if _, ok := r.avatars[id]; !ok {
		return false
	}
	delete(r.avatars, id)
	return true
}

// GetAvatar returns the avatar owned by participant id
func (r *Registry) GetAvatar(id string) (*models.Avatar, bool) {
	a, ok := r.avatars[id]
	return a, ok
}

// AllAvatars returns the avatars ordered by participant id
func (r *Registry) AllAvatars() []*models.Avatar {
	out := make([]*models.Avatar, 0, len(r.avatars))
	for _, a := range r.avatars {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}

// PutItem stores it, replacing any item with the same id
func (r *Registry) PutItem(it models.Item) {
	r.items[it.ID] = it
}

// RemoveItem deletes the item and reports whether it existed
func (r *Registry) RemoveItem(id int) bool {
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	return true
}

// GetItem returns the item with the given id
func (r *Registry) GetItem(id int) (models.Item, bool) {
	it, ok := r.items[id]
	return it, ok
}

// HasItem reports whether id is registered
func (r *Registry) HasItem(id int) bool {
	_, ok := r.items[id]
	return ok
}

// AllItems returns a copy of every live item ordered by id
func (r *Registry) AllItems() []models.Item {
	out := make([]models.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ItemCount returns the number of live items
func (r *Registry) ItemCount() int {
	return len(r.items)
}
