package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
	"storefront/internal/models"
)

type envelope map[string]any

// apiError is a failure with a status and message meant for the client.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func newAPIError(status int, format string, args ...any) error {
	return &apiError{status: status, message: fmt.Sprintf(format, args...)}
}

// errorResponse is the single place store, auth and client errors become
// HTTP responses. Anything it does not recognise is a 500.
func (app *application) errorResponse(w http.ResponseWriter, err error) {
	var (
		ae  *apiError
		dup *models.DuplicateError
	)

	switch {
	case errors.As(err, &ae):
		app.writeError(w, ae.status, ae.message)
	case errors.Is(err, models.ErrInvalidID):
		app.writeError(w, http.StatusBadRequest, "Resource not found. Invalid: _id")
	case errors.As(err, &dup):
		app.writeError(w, http.StatusBadRequest, dup.Error())
	case errors.Is(err, models.ErrInvalidFilter):
		app.writeError(w, http.StatusBadRequest, "Resource not found. Invalid: "+strings.TrimPrefix(err.Error(), models.ErrInvalidFilter.Error()+": "))
	case errors.Is(err, auth.ErrTokenExpired):
		app.writeError(w, http.StatusUnauthorized, "Token has expired, please log in again")
	case errors.Is(err, auth.ErrTokenInvalid):
		app.writeError(w, http.StatusUnauthorized, "Invalid token, please log in again")
	case errors.Is(err, models.ErrNoRecord):
		app.writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrEditConflict):
		app.writeError(w, http.StatusConflict, "Product reviews were changed by another request, please retry")
	default:
		app.serverError(w, err)
	}
}

func (app *application) serverError(w http.ResponseWriter, err error) {
	trace := fmt.Sprintf("%s\n%s", err.Error(), debug.Stack())
	app.errorLog.Output(2, trace)

	app.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func (app *application) clientError(w http.ResponseWriter, status int) {
	app.writeError(w, status, http.StatusText(status))
}

func (app *application) notFound(w http.ResponseWriter) {
	app.clientError(w, http.StatusNotFound)
}

func (app *application) writeError(w http.ResponseWriter, status int, message string) {
	app.writeJSON(w, status, envelope{"success": false, "message": message})
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		app.errorLog.Output(2, err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

const maxBodyBytes = 1 << 20

func (app *application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return newAPIError(http.StatusBadRequest, "Request body must not be empty")
		case errors.As(err, &maxBytesErr):
			return newAPIError(http.StatusRequestEntityTooLarge, "Request body must not be larger than %d bytes", maxBytesErr.Limit)
		default:
			return newAPIError(http.StatusBadRequest, "Invalid request body: %v", err)
		}
	}
	return nil
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func (app *application) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := app.readJSON(w, r, dst); err != nil {
		return err
	}
	return app.validateStruct(dst)
}

func (app *application) validateStruct(v any) error {
	err := app.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return newAPIError(http.StatusBadRequest, "Please enter %s", field)
	case "email":
		return newAPIError(http.StatusBadRequest, "Please enter a valid email")
	case "min", "gte":
		return newAPIError(http.StatusBadRequest, "%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return newAPIError(http.StatusBadRequest, "%s cannot exceed %s", field, fe.Param())
	default:
		return newAPIError(http.StatusBadRequest, "%s is invalid", field)
	}
}

// newValidator reports field names by their json tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (app *application) idParam(r *http.Request, name string) (primitive.ObjectID, error) {
	return models.ParseID(r.URL.Query().Get(name))
}
