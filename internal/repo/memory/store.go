package memory

import (
	"context"

	"github.com/techdiscoveria/discoveria/internal/repo"
)

// NewStore returns an in-process store. Data lives as long as the process.
func NewStore() *repo.Store {
	users := NewUsersRepo()

	return repo.NewStore(
		users,
		NewProductsRepo(),
		NewPaymentsRepo(users),
		func(context.Context) error { return nil },
		func(context.Context) error { return nil },
	)
}
