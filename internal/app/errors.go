package app

import (
	"errors"
	"fmt"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

var domainErrors = []error{
	domain.ErrInvalidInput,
	domain.ErrInsufficientQuestions,
	domain.ErrNoActiveMatch,
	domain.ErrInvalidEntrantCount,
	domain.ErrSlotNotReady,
	domain.ErrNotFound,
	domain.ErrConflict,
	domain.ErrStorage,
}

// storageErr converts a collaborator failure into ErrStorage unless it already
// carries one of the domain kinds.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range domainErrors {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
