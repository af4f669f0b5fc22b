package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации
	ErrInvalidUTR        = errors.New("UTR must be exactly the configured number of digits")
	ErrInvalidPeriod     = errors.New("invalid report period")
	ErrInvalidStatus     = errors.New("invalid tournament status provided")
	ErrInvalidTournament = errors.New("invalid tournament details")
	ErrInvalidTransition = errors.New("invalid tournament status transition")
	ErrUnsupportedProof  = errors.New("unsupported payment proof format")

	// Ресурс не найден
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrPaymentNotFound    = errors.New("payment not found")

	// Информационные: состояние уже такое, как просили, или запрос опоздал.
	ErrAlreadyJoined      = errors.New("user already joined this tournament")
	ErrRegistrationClosed = errors.New("tournament registration is closed")
	ErrDuplicateReferral  = errors.New("user already has a referrer")

	// Аутентификация и авторизация
	ErrUnauthorized       = errors.New("operation requires an admin")
	ErrInvalidCredentials = errors.New("invalid admin id or password")

	ErrPersistence         = errors.New("storage failure")
	ErrProofUploadDisabled = errors.New("payment proof upload is not configured")
)

// IsInformational reports errors that describe a benign state rather than a
// failure, so callers can show them as status.
func IsInformational(err error) bool {
	return errors.Is(err, ErrAlreadyJoined) ||
		errors.Is(err, ErrRegistrationClosed) ||
		errors.Is(err, ErrDuplicateReferral)
}
