// Package apierror traduz qualquer erro de handler para o formato único
// {"detail": "..."} com o status HTTP correspondente.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	MsgRateLimited  = "Rate limit exceeded. Please try again later."
	MsgOverCapacity = "Server is busy. Please try again later."
)

// Error é um erro com status HTTP e mensagem pública.
type Error struct {
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Detail == "" {
		return e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCoder é implementado por erros de outros pacotes que já sabem o próprio status
// (ex.: uploadguard), sem importar este pacote.
type StatusCoder interface {
	HTTPStatus() int
}

func New(status int, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

func TooManyRequests() *Error {
	return New(http.StatusTooManyRequests, MsgRateLimited)
}

func OverCapacity() *Error {
	return New(http.StatusServiceUnavailable, MsgOverCapacity)
}

func PayloadTooLarge(detail string) *Error {
	return New(http.StatusRequestEntityTooLarge, detail)
}

func Unprocessable(detail string) *Error {
	return New(http.StatusUnprocessableEntity, detail)
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Err: err}
}

// Upstream representa a falha de um colaborador externo. Status 0 vira 500.
func Upstream(status int, detail string, err error) *Error {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	return &Error{Status: status, Detail: detail, Err: err}
}

// ParseFailure é usado quando o colaborador respondeu 2xx mas com corpo inesperado.
func ParseFailure(err error, body string) *Error {
	return &Error{
		Status: http.StatusInternalServerError,
		Detail: fmt.Sprintf("Error parsing caption response: %s, Response: %s", err, body),
		Err:    err,
	}
}

// Classify devolve o status e a mensagem pública de err.
// Erros não classificados viram 500 com a mensagem do próprio erro.
func Classify(err error) (int, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Error()
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), err.Error()
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body too large. Maximum size is %d bytes.", maxErr.Limit)
	}

	return http.StatusInternalServerError, err.Error()
}
