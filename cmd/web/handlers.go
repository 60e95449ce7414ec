package main

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/repository"
)

// --- AUTH HANDLERS ---

type registerInput struct {
	Name     string `json:"name" validate:"required,min=4,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (app *application) registerUser(w http.ResponseWriter, r *http.Request) {
	var input registerInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	user, err := app.users.Insert(r.Context(), input.Name, input.Email, input.Password, auth.RoleUser)
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	app.sendToken(w, r, user, http.StatusCreated)
}

// sendToken starts an authenticated session for user and returns a bearer
// token alongside it.
func (app *application) sendToken(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, err := app.tokens.Issue(user.ID.Hex())
	if err != nil {
		app.serverError(w, err)
		return
	}

	if err := app.session.RenewToken(r.Context()); err != nil {
		app.serverError(w, err)
		return
	}
	app.session.Put(r.Context(), sessionUserKey, user.ID.Hex())

	app.writeJSON(w, status, envelope{"success": true, "user": user, "token": token})
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) loginUser(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}
	if input.Email == "" || input.Password == "" {
		app.writeError(w, http.StatusBadRequest, "Please enter email and password")
		return
	}

	user, err := app.users.Authenticate(r.Context(), input.Email, input.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		app.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.sendToken(w, r, user, http.StatusOK)
}

func (app *application) logoutUser(w http.ResponseWriter, r *http.Request) {
	if err := app.session.Destroy(r.Context()); err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Logged out successfully"})
}

func (app *application) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	if app.publicURL == "" {
		app.serverError(w, errors.New("PUBLIC_URL is not configured, refusing to mail a reset link"))
		return
	}

	token, user, err := app.users.CreateResetToken(r.Context(), input.Email, app.now())
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "User not found with this email")
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	resetURL := fmt.Sprintf("%s/password/reset/%s", app.publicURL, token)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Storefront password recovery",
		Body: fmt.Sprintf("Your password reset token is:\n\n%s\n\n"+
			"If you have not requested this email then, please ignore it.", resetURL),
	}

	if err := app.mailer.Send(r.Context(), msg); err != nil {
		if cerr := app.users.ClearResetToken(r.Context(), user.ID); cerr != nil {
			app.errorLog.Printf("failed to clear reset token for %s: %v", user.ID.Hex(), cerr)
		}
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": fmt.Sprintf("Email sent to %s successfully", user.Email),
	})
}

type resetInput struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (app *application) resetPassword(w http.ResponseWriter, r *http.Request) {
	var input resetInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}
	if input.Password != input.ConfirmPassword {
		app.writeError(w, http.StatusBadRequest, "Password does not match")
		return
	}

	user, err := app.users.ResetPassword(r.Context(), r.URL.Query().Get(":token"), input.Password, app.now())
	if errors.Is(err, repository.ErrResetTokenInvalid) {
		app.writeError(w, http.StatusBadRequest, "Reset Password Token is invalid or has been expired")
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.sendToken(w, r, user, http.StatusOK)
}

// --- PROFILE HANDLERS ---

func (app *application) getUserDetails(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "user": app.currentUser(r)})
}

type profileInput struct {
	Name  string `json:"name" validate:"omitempty,min=4,max=30"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (app *application) updateProfile(w http.ResponseWriter, r *http.Request) {
	var input profileInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	user := app.currentUser(r)
	err := app.users.Update(r.Context(), user.ID, repository.UserUpdate{Name: input.Name, Email: input.Email})
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Profile updated successfully"})
}

type passwordInput struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (app *application) updatePassword(w http.ResponseWriter, r *http.Request) {
	var input passwordInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}
	if input.NewPassword != input.ConfirmPassword {
		app.writeError(w, http.StatusBadRequest, "Password does not match")
		return
	}

	user, err := app.users.ChangePassword(r.Context(), app.currentUser(r).ID, input.OldPassword, input.NewPassword)
	if errors.Is(err, repository.ErrWrongPassword) {
		app.writeError(w, http.StatusBadRequest, "Old password is incorrect")
		return
	}
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	app.sendToken(w, r, user, http.StatusOK)
}

// --- ADMIN USER HANDLERS ---

func (app *application) getAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := app.users.List(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "users": users})
}

func (app *application) getSingleUser(w http.ResponseWriter, r *http.Request) {
	id, err := app.idParam(r, ":id")
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	user, err := app.users.Get(r.Context(), id)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "User does not exist with Id: "+id.Hex())
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"success": true, "user": user})
}

type roleInput struct {
	Name  string `json:"name" validate:"omitempty,min=4,max=30"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role"`
}

func (app *application) updateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := app.idParam(r, ":id")
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	var input roleInput
	if err := app.decodeAndValidate(w, r, &input); err != nil {
		app.errorResponse(w, err)
		return
	}

	upd := repository.UserUpdate{Name: input.Name, Email: input.Email}
	if input.Role != "" {
		role, err := auth.ParseRole(input.Role)
		if err != nil {
			app.writeError(w, http.StatusBadRequest, "Invalid role: "+input.Role)
			return
		}
		upd.Role = role
	}

	err = app.users.Update(r.Context(), id, upd)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "User does not exist with Id: "+id.Hex())
		return
	}
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "User role updated successfully"})
}

func (app *application) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := app.idParam(r, ":id")
	if err != nil {
		app.errorResponse(w, err)
		return
	}

	err = app.users.Delete(r.Context(), id)
	if errors.Is(err, models.ErrNoRecord) {
		app.writeError(w, http.StatusNotFound, "User does not exist with Id: "+id.Hex())
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "User deleted successfully"})
}
