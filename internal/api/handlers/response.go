package handlers

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// APIError is the error body every endpoint returns, huma operations
// and raw echo routes alike. It implements huma.StatusError so huma
// serializes it directly.
type APIError struct {
	status  int
	Success bool   `json:"success"`
	Err     string `json:"error"`
}

func (e *APIError) Error() string  { return e.Err }
func (e *APIError) GetStatus() int { return e.status }

// InitErrors swaps huma's error factory for one producing APIError, so
// validation failures raised inside huma itself come back in the same
// {success, error} shape as our own rejections. Call once at router
// setup.
func InitErrors() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		detail := msg
		if len(errs) > 0 {
			parts := make([]string, 0, len(errs))
			for _, e := range errs {
				parts = append(parts, e.Error())
			}
			detail += ": " + strings.Join(parts, "; ")
		}
		return &APIError{status: status, Err: detail}
	}
}

// DataBody wraps a success payload.
type DataBody[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// DataOutput is the huma output type for data-carrying responses.
type DataOutput[T any] struct {
	Body DataBody[T]
}

// OK wraps data in the standard success envelope.
func OK[T any](data T) *DataOutput[T] {
	return &DataOutput[T]{Body: DataBody[T]{Success: true, Data: data}}
}
