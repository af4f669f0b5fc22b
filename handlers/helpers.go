package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-bot/middleware"
	"github.com/Dosada05/tournament-bot/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeJSON(w, r, dst, true)
}

// readLenientJSON is readJSON for bodies produced by an external gateway,
// which may carry fields we do not model.
func readLenientJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeJSON(w, r, dst, false)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, strict bool) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // передан не указатель, ошибка программиста
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// errorReporter пишет JSON-ошибки и логирует то, что клиенту не показываем.
type errorReporter struct {
	logger *slog.Logger
}

func (e errorReporter) errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		e.logger.Error("failed to write error response",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (e errorReporter) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	e.logger.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	e.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (e errorReporter) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	e.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (e errorReporter) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	e.errorResponse(w, r, http.StatusNotFound, message)
}

func (e errorReporter) conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	e.errorResponse(w, r, http.StatusConflict, message)
}

func (e errorReporter) unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	e.errorResponse(w, r, http.StatusUnauthorized, message)
}

func (e errorReporter) forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	e.errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func (e errorReporter) mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrPaymentNotFound):
		e.notFoundResponse(w, r)

	case errors.Is(err, services.ErrInvalidUTR),
		errors.Is(err, services.ErrInvalidPeriod),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidTournament),
		errors.Is(err, services.ErrUnsupportedProof):
		e.badRequestResponse(w, r, err)

	// Запрошенное состояние уже достигнуто или переход запрещён таблицей.
	case errors.Is(err, services.ErrInvalidTransition),
		services.IsInformational(err):
		e.conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		e.unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		e.forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrProofUploadDisabled):
		e.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())

	default:
		e.serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", param)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format", param)
	}

	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value", param)
	}

	return id, nil
}

// currentAdmin resolves the authenticated caller into an admin capability.
func currentAdmin(r *http.Request, authorizer *services.Authorizer) (services.Admin, error) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return services.Admin{}, fmt.Errorf("%w: %v", services.ErrUnauthorized, err)
	}
	return authorizer.Admin(userID)
}
