package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"ideias/internal/apperr"
	"ideias/internal/constants"
)

var requestValidator = validator.New()

var errPayloadTooLarge = &apperr.Error{Code: constants.ErrCodePayloadTooLarge, Message: "request body too large"}

// decodeAndValidate decodes a single JSON object and runs its validate tags.
// Failures come back as invalid_data (or payload_too_large) business errors.
func decodeAndValidate(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errPayloadTooLarge
		}
		return apperr.ErrInvalidData.WithMessage("invalid JSON body")
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.ErrInvalidData.WithMessage("invalid JSON body")
	}

	if err := requestValidator.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			field := strings.ToLower(first.Field())
			switch first.Tag() {
			case "required":
				return apperr.ErrInvalidData.WithMessage(field + " is required")
			case "email":
				return apperr.ErrInvalidData.WithMessage("invalid email format")
			case "max":
				return apperr.ErrInvalidData.WithMessage(field + " is too long")
			case "datetime":
				return apperr.ErrInvalidData.WithMessage(field + " must be YYYY-MM-DD")
			default:
				return apperr.ErrInvalidData.WithMessage("invalid " + field)
			}
		}

		return apperr.ErrInvalidData.WithMessage("invalid request payload")
	}

	return nil
}

// validEmail checks an already-normalized address.
func validEmail(email string) bool {
	return requestValidator.Var(email, "required,email,max=254") == nil
}
