package services

import (
	"errors"
	"time"

	"github.com/khmerweb/cms-backend/internal/models"
)

// nowFunc supplies the current time; tests pin it for deterministic rows.
type nowFunc func() time.Time

func defaultNow() time.Time {
	return time.Now().UTC()
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
