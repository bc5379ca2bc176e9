package req

import (
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode decodes JSON from an io.ReadCloser into a value of type T.
func Decode[T any](body io.ReadCloser) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid validates a value of type T against its struct tags.
func IsValid[T any](payload T) error {
	return validate.Struct(payload)
}
