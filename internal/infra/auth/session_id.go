package auth

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// parseSessionID parses the session ID claim, rejecting the zero UUID so a
// forged cookie cannot point at an all-zero row.
func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, errors.New("zero session id")
	}

	return id, nil
}
