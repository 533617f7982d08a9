package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spec-kit/support-hub/internal/events"
	"github.com/spec-kit/support-hub/internal/repository"
	"github.com/spec-kit/support-hub/internal/validation"
	apperrors "github.com/spec-kit/support-hub/pkg/util"
)

// notFoundAs converts a repository miss into a NotFound DomainError.
func notFoundAs(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

// requireID rejects malformed identifiers as NotFound before they reach a
// store that would fail on the uuid cast.
func requireID(resource, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed == uuid.Nil {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return nil
}

func ruleViolation(errs []validation.Error) error {
	return apperrors.NewOperationNotPermitted(validation.ToFieldErrors(errs))
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
