package storage

import (
	"strings"

	"github.com/google/uuid"
)

// randomToken returns a short random suffix for generated filenames. The
// first UUID group is plenty to disambiguate files created within the same
// millisecond.
func randomToken() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
