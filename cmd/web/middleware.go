package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/auth"
	"storefront/internal/models"
)

type contextKey string

const (
	userContextKey      = contextKey("user")
	authErrorContextKey = contextKey("authError")
	requestIDContextKey = contextKey("requestID")
)

const sessionUserKey = "authenticatedUserID"

var errUserGone = errors.New("user no longer exists")

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey, id))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		app.infoLog.Printf("%s - %s %s %s %d %s id=%s", r.RemoteAddr, r.Proto, r.Method, r.URL.RequestURI(),
			rec.status, time.Since(start).Round(time.Microsecond), id)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// cors allows the storefront frontend to call the API with credentials.
// A wildcard frontend gets a plain "*" without credentials, so cookies are
// only ever shared with a named origin.
func (app *application) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
		case app.frontendURL == "*":
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin == app.frontendURL:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Stripe-Signature")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the caller from a bearer token, falling back to the
// session cookie. It never rejects a request itself; a bad credential is
// recorded for requireAuthentication to report.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID string

		if token, ok := bearerToken(r); ok {
			id, err := app.tokens.Verify(token)
			if err != nil {
				ctx := context.WithValue(r.Context(), authErrorContextKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			userID = id
		} else {
			userID = app.session.GetString(r.Context(), sessionUserKey)
		}

		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		oid, err := models.ParseID(userID)
		if err != nil {
			ctx := context.WithValue(r.Context(), authErrorContextKey, auth.ErrTokenInvalid)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		user, err := app.users.Get(r.Context(), oid)
		if errors.Is(err, models.ErrNoRecord) {
			ctx := context.WithValue(r.Context(), authErrorContextKey, errUserGone)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		if err != nil {
			app.serverError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func (app *application) currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

func (app *application) requireAuthentication(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.currentUser(r) != nil {
			w.Header().Add("Cache-Control", "no-store")
			next(w, r)
			return
		}

		authErr, _ := r.Context().Value(authErrorContextKey).(error)
		switch {
		case errors.Is(authErr, auth.ErrTokenExpired), errors.Is(authErr, auth.ErrTokenInvalid):
			app.errorResponse(w, authErr)
		case errors.Is(authErr, errUserGone):
			app.writeError(w, http.StatusUnauthorized, "User not found, please log in again")
		default:
			app.writeError(w, http.StatusUnauthorized, "Please login to access this resource")
		}
	}
}

// requireCapability fails closed: the caller must be authenticated and
// hold a role that grants c.
func (app *application) requireCapability(c auth.Capability, next http.HandlerFunc) http.HandlerFunc {
	return app.requireAuthentication(func(w http.ResponseWriter, r *http.Request) {
		user := app.currentUser(r)
		if !user.Role.Can(c) {
			app.writeError(w, http.StatusForbidden,
				fmt.Sprintf("Role: %s is not allowed to access this resource", user.Role))
			return
		}
		next(w, r)
	})
}
