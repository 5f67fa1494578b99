package user

import (
	"context"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// Directory adapts a Store to marketplace.UserDirectory.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

func (d *Directory) LookupUser(ctx context.Context, id string) (*marketplace.UserRef, error) {
	u, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &marketplace.UserRef{ID: u.ID, Name: u.Name, Avatar: u.Avatar}, nil
}
