// Package request decodes JSON request bodies the same way for every
// handler.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrEmptyBody is returned when the client sent no body at all.
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes r's body into v. Type mismatches such as a string
// where a number is expected come back as a readable error naming the
// field.
func DecodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("field %s must be a %s", typeErr.Field, typeErr.Type)
	}
	return err
}
