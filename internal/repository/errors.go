package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrTicketResolved is returned when a conditional write finds the ticket
	// already resolved.
	ErrTicketResolved = errors.New("ticket already resolved")
)

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
