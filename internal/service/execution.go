package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
)

const messageInternalServerError string = "Internal server error"

func idFromPath(pathVariables map[string]string) (int64, error) {
	id, err := strconv.ParseInt(pathVariables[data.PathId], 10, 64)
	if err != nil || id <= 0 {
		return 0, data.ErrInvalidId
	}
	return id, nil
}

func statusFromError(err error) int {
	switch data.KindOf(err) {
	default:
		return http.StatusInternalServerError
	case data.KindNotFound:
		return http.StatusNotFound
	case data.KindValidation, data.KindBadRequest:
		return http.StatusBadRequest
	case data.KindDuplicateEmail:
		return http.StatusConflict
	case data.KindUnauthorized:
		return http.StatusUnauthorized
	}
}

// errorResponse converts err into a response body, infrastructure failures
// are reduced to a generic message unless details are enabled
func errorResponse(err error, details bool) (int, *data.ResponseError) {
	var e *data.Error

	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		response := &data.ResponseError{Error: messageInternalServerError}
		if details {
			response.Details = err.Error()
		}
		return status, response
	}
	response := &data.ResponseError{Error: err.Error()}
	if errors.As(err, &e) {
		response.Error = e.Message
		response.Fields = e.Fields
		if details && e.Err != nil {
			response.Details = e.Err.Error()
		}
	}
	return status, response
}

func handleResponse(writer http.ResponseWriter, statusCode int, item any) error {
	bytes, err := json.Marshal(item)
	if err != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		return err
	}
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_, err = writer.Write(bytes)
	return err
}

func methodNotAllowed(writer http.ResponseWriter, methods ...string) error {
	writer.Header().Set("Allow", strings.Join(methods, ", "))
	return handleResponse(writer, http.StatusMethodNotAllowed,
		&data.ResponseError{Error: "Method not allowed"})
}
