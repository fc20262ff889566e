package services

import (
	"context"
	"fmt"

	"github.com/asakaida/filmrate/internal/entities"
	"github.com/asakaida/filmrate/internal/repositories"
)

// invalid marks a validation failure as an invalid argument
func invalid(err error) error {
	return fmt.Errorf("%w: %v", repositories.ErrInvalidArgument, err)
}

// requirePerson locks the person row for the rest of the unit
func requirePerson(ctx context.Context, tx repositories.Store, id int64) error {
	return tx.Lock(ctx, entities.EntityPerson, id)
}

// requireFilm locks the film row for the rest of the unit
func requireFilm(ctx context.Context, tx repositories.Store, id int64) error {
	return tx.Lock(ctx, entities.EntityFilm, id)
}
