package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/accountkit/accountkit/core"
	"github.com/accountkit/accountkit/pkg/validator"
)

// Router mounts the profile API:
//
//	GET    /                    projected profile
//	PATCH  /                    simple update (name, avatar, username, profile)
//	POST   /password            verified password change
//	PATCH  /password            session password change
//	PATCH  /email               set or delete primary email
//	PATCH  /phone               set or delete primary phone
//	PATCH  /identities          link a federated identity
//	DELETE /identities/{target} unlink a federated identity
func Router(svc *Service, tokenSecret string) chi.Router {
	r := chi.NewRouter()
	r.Use(Authenticator(tokenSecret))

	h := &handlers{svc: svc}

	r.Get("/", h.getProfile)
	r.Patch("/", h.updateProfile)
	r.Post("/password", h.changePasswordVerified)
	r.Patch("/password", h.changePassword)
	r.Patch("/email", h.updateEmail)
	r.Patch("/phone", h.updatePhone)
	r.Patch("/identities", h.linkIdentity)
	r.Delete("/identities/{target}", h.unlinkIdentity)

	return r
}

type handlers struct {
	svc *Service
}

func (h *handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	Name       *string        `json:"name"`
	Avatar     *string        `json:"avatar"`
	Username   *string        `json:"username"`
	CustomData map[string]any `json:"profile"`
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.svc.UpdateProfile(r.Context(), UpdateProfileParams{
		Name:       req.Name,
		Avatar:     req.Avatar,
		Username:   req.Username,
		CustomData: req.CustomData,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	core.JSON(w, http.StatusOK, p)
}

type verifiedPasswordRequest struct {
	Password             string `json:"password"`
	VerificationRecordID string `json:"verificationRecordId"`
}

func (h *handlers) changePasswordVerified(w http.ResponseWriter, r *http.Request) {
	var req verifiedPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	recordID, ok := parseRecordID(w, req.VerificationRecordID)
	if !ok {
		return
	}

	if err := h.svc.ChangePasswordVerified(r.Context(), req.Password, recordID); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.ChangePassword(r.Context(), req.Password); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

type emailRequest struct {
	PrimaryEmail         string `json:"primaryEmail"`
	VerificationRecordID string `json:"verificationRecordId"`
}

// updateEmail sets the primary email when one is supplied and deletes it
// when the body carries an empty value.
func (h *handlers) updateEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}

	if req.PrimaryEmail == "" {
		if err := h.svc.DeleteEmail(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		core.NoContent(w)
		return
	}

	recordID, ok := parseRecordID(w, req.VerificationRecordID)
	if !ok {
		return
	}

	if err := h.svc.SetEmail(r.Context(), req.PrimaryEmail, recordID); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

type phoneRequest struct {
	PrimaryPhone         string `json:"primaryPhone"`
	VerificationRecordID string `json:"verificationRecordId"`
}

func (h *handlers) updatePhone(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if !decode(w, r, &req) {
		return
	}

	if req.PrimaryPhone == "" {
		if err := h.svc.DeletePhone(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		core.NoContent(w)
		return
	}

	recordID, ok := parseRecordID(w, req.VerificationRecordID)
	if !ok {
		return
	}

	if err := h.svc.SetPhone(r.Context(), req.PrimaryPhone, recordID); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

type identityRequest struct {
	ConnectorID          string            `json:"connectorId"`
	Data                 map[string]string `json:"data"`
	VerificationRecordID string            `json:"verificationRecordId"`
}

func (h *handlers) linkIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decode(w, r, &req) {
		return
	}

	recordID, ok := parseRecordID(w, req.VerificationRecordID)
	if !ok {
		return
	}

	if err := h.svc.LinkIdentity(r.Context(), req.ConnectorID, req.Data, recordID); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

func (h *handlers) unlinkIdentity(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")

	if err := h.svc.UnlinkIdentity(r.Context(), target); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		core.JSONError(w, core.ErrBadRequest.WithKey("request.invalid_json"))
		return false
	}
	return true
}

func parseRecordID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	if raw == "" {
		core.JSONError(w, core.ErrBadRequest.WithKey("verification.record_required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		core.JSONError(w, core.ErrBadRequest.WithKey("verification.record_invalid"))
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps domain errors onto the API error surface. Keys are stable
// and double as translation keys.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case validator.IsValidationError(err):
		core.JSONError(w, err)
	case errors.Is(err, ErrUnauthorized):
		core.JSONError(w, core.ErrUnauthorized)
	case errors.Is(err, ErrUserNotFound):
		core.JSONError(w, core.ErrNotFound.WithKey("user.not_found"))
	case errors.Is(err, ErrRecordNotFound):
		core.JSONError(w, core.ErrBadRequest.WithKey("verification.record_not_found"))
	case errors.Is(err, ErrRecordExpired):
		core.JSONError(w, core.ErrBadRequest.WithKey("verification.record_expired"))
	case errors.Is(err, ErrRecordConsumed):
		core.JSONError(w, core.ErrBadRequest.WithKey("verification.record_consumed"))
	case errors.Is(err, ErrRecordScopeMismatch):
		core.JSONError(w, core.ErrBadRequest.WithKey("verification.record_scope_mismatch"))
	case errors.Is(err, ErrIdentifierExists):
		core.JSONError(w, core.ErrUnprocessableEntity.WithKey("user.identifier_exists"))
	case errors.Is(err, ErrSamePassword):
		core.JSONError(w, core.ErrUnprocessableEntity.WithKey("user.same_password"))
	case errors.Is(err, ErrEmailNotExists):
		core.JSONError(w, core.ErrUnprocessableEntity.WithKey("user.email_not_exists"))
	case errors.Is(err, ErrPhoneNotExists):
		core.JSONError(w, core.ErrUnprocessableEntity.WithKey("user.phone_not_exists"))
	case errors.Is(err, ErrIdentityNotExists):
		core.JSONError(w, core.ErrNotFound.WithKey("user.identity_not_exists"))
	case errors.Is(err, ErrConnectorNotFound):
		core.JSONError(w, core.ErrNotFound.WithKey("connector.not_found"))
	case errors.Is(err, ErrUpstreamFailure):
		core.JSONError(w, core.ErrBadGateway.WithKey("connector.exchange_failed"))
	default:
		core.JSONError(w, err)
	}
}
