// Package server is the HTTP surface of the site: the email relay, auth,
// public content and live streams, the forms, the client dashboard and the
// admin portal.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/minehubyt/Anand-Pandey/internal/assets"
	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/docstore"
	"github.com/minehubyt/Anand-Pandey/internal/identity"
	"github.com/minehubyt/Anand-Pandey/internal/messaging"
)

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound is returned when a requested record does not exist.
type ErrNotFound struct {
	What string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.ID)
}

// connectionMessage is what end users see when the store fails.
const connectionMessage = "connection error, please retry"

// HTTPStatus returns the status code for err.
func HTTPStatus(err error) int {
	var (
		validation    *ErrValidation
		notFound      *ErrNotFound
		docNotFound   *docstore.ErrNotFound
		exists        *identity.ErrEmailAlreadyExists
		credentials   *identity.ErrInvalidCredentials
		badToken      *identity.ErrInvalidToken
		userNotFound  *identity.ErrUserNotFound
		badStatus     *content.ErrInvalidStatus
		badTransition *content.ErrInvalidTransition
		unknownKind   *content.ErrUnknownKind
		notDeletable  *content.ErrNotDeletable
		badAsset      *assets.ErrInvalidAsset
		delivery      *messaging.DeliveryError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &badStatus),
		errors.As(err, &unknownKind), errors.As(err, &badAsset):
		return http.StatusBadRequest
	case errors.As(err, &credentials), errors.As(err, &badToken):
		return http.StatusUnauthorized
	case errors.As(err, &notFound), errors.As(err, &docNotFound), errors.As(err, &userNotFound):
		return http.StatusNotFound
	case errors.As(err, &exists), errors.As(err, &badTransition), errors.As(err, &notDeletable):
		return http.StatusConflict
	case errors.As(err, &delivery):
		if delivery.Rejected() {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the text shown to the client for err. Internal
// failures never leak their cause.
func publicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return connectionMessage
	}
	var delivery *messaging.DeliveryError
	if errors.As(err, &delivery) {
		return delivery.Message
	}
	return err.Error()
}

// validationError converts validator output into an ErrValidation naming
// the first failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	fe := verrs[0]
	field := fe.Field()
	if field != "" {
		field = strings.ToLower(field[:1]) + field[1:]
	}
	msg := fe.Tag()
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "min":
		msg = "must be at least " + fe.Param() + " characters"
	case "oneof":
		msg = "must be one of: " + fe.Param()
	}
	return &ErrValidation{Field: field, Message: msg}
}
