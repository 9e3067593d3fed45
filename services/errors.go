package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурсы
	ErrUserNotFound       = errors.New("user not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// Ошибки валидации и бизнес-правил
	ErrNameRequired                 = errors.New("name is required")
	ErrMaxParticipantsRequired      = errors.New("maxParticipants is required")
	ErrInvalidMaxParticipants       = errors.New("max participants must be at least 1")
	ErrInvalidStartDate             = errors.New("start date must be an RFC 3339 timestamp")
	ErrInvalidTimezoneOffset        = errors.New("timezone offset must look like +00:00")
	ErrActionRequired               = errors.New("action field is required")
	ErrUnsupportedAction            = errors.New("unsupported action")
	ErrMatchFull                    = errors.New("match is full")
	ErrTournamentFull               = errors.New("tournament is full")
	ErrAlreadyJoined                = errors.New("user has already joined")
	ErrRosterExceedsMaxParticipants = errors.New("roster would exceed max participants")

	// Ошибки конфликтов
	ErrGameNameConflict = errors.New("game name already exists")
	ErrCodeExhausted    = errors.New("failed to mint a unique public code")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthNicknameTaken      = errors.New("nickname is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Инфраструктура
	ErrCoverUploadUnavailable = errors.New("cover upload is not configured")
	ErrCoverInvalidType       = errors.New("cover must be a png or jpeg image")
)
