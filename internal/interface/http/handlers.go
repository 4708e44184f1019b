package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/application/command"
	"github.com/tutorhub/tutorhub/internal/application/query"
	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
	"github.com/tutorhub/tutorhub/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Health
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   timeutil.ISO8601(time.Now()),
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// Auth
// ═══════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}
	if len(req.Password) < 8 {
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_error", "Password must be at least 8 characters")
		return
	}

	role := user.Role(req.Role)
	if req.Role == "" {
		role = user.RoleStudent
	}

	u, err := user.New(req.Name, req.Email, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := u.SetPassword(req.Password); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.deps.Users.Create(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := s.deps.Sessions.Issue(u.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "Could not issue session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  renderUser(u),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	u, err := s.deps.Users.GetByEmail(r.Context(), req.Email)
	if err != nil || !u.CheckPassword(req.Password) {
		// Same response for unknown email and wrong password.
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	token, err := s.deps.Sessions.Issue(u.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "Could not issue session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  renderUser(u),
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// Offerings
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) handleListOfferings(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)

	var (
		offerings []*offering.Offering
		err       error
	)

	switch {
	case r.URL.Query().Get("mine") == "true":
		offerings, err = s.deps.Offerings.ListByRequester(r.Context(), actorID(r), opts)
	case r.URL.Query().Get("accepted_by_me") == "true":
		offerings, err = s.deps.Offerings.ListByTutor(r.Context(), actorID(r), opts)
	case r.URL.Query().Get("status") != "":
		offerings, err = s.deps.Offerings.ListByStatus(r.Context(), offering.Status(r.URL.Query().Get("status")), opts)
	default:
		offerings, err = s.deps.Offerings.List(r.Context(), opts)
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(offerings))
	for _, o := range offerings {
		out = append(out, renderOffering(o))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"offerings": out})
}

func (s *Server) handleGetOffering(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid offering id")
		return
	}

	o, err := s.deps.Offerings.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"offering": renderOffering(o)})
}

type offeringRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
}

func (s *Server) handleCreateOffering(w http.ResponseWriter, r *http.Request) {
	var req offeringRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	o, err := s.deps.Commands.CreateOffering.Handle(r.Context(), command.CreateOfferingCommand{
		ActorID:     actorID(r),
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"offering": renderOffering(o)})
}

func (s *Server) handleUpdateOffering(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid offering id")
		return
	}

	var req offeringRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	o, err := s.deps.Commands.UpdateOffering.Handle(r.Context(), command.UpdateOfferingCommand{
		ActorID:     actorID(r),
		OfferingID:  id,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"offering": renderOffering(o)})
}

func (s *Server) handleDeleteOffering(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid offering id")
		return
	}

	err = s.deps.Commands.DeleteOffering.Handle(r.Context(), command.DeleteOfferingCommand{
		ActorID:    actorID(r),
		OfferingID: id,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAcceptOffering(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid offering id")
		return
	}

	o, err := s.deps.Commands.AcceptOffering.Handle(r.Context(), command.AcceptOfferingCommand{
		ActorID:    actorID(r),
		OfferingID: id,
		SocketID:   r.Header.Get("X-Socket-ID"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"offering": renderOffering(o)})
}

type uploadAttachmentsRequest struct {
	Files []offering.Attachment `json:"files"`
}

func (s *Server) handleUploadAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid offering id")
		return
	}

	var req uploadAttachmentsRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	o, err := s.deps.Commands.UploadAttachments.Handle(r.Context(), command.UploadAttachmentsCommand{
		ActorID:    actorID(r),
		OfferingID: id,
		Files:      req.Files,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"offering": renderOffering(o)})
}

// ═══════════════════════════════════════════════════════════════════════════
// Messages
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid offering id")
		return
	}

	actor, err := s.deps.Users.GetByID(r.Context(), actorID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := s.deps.Offerings.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !s.deps.Policies.Message.View(actor, o) {
		writeDomainError(w, shared.Denied("message", "List"))
		return
	}

	messages, err := s.deps.Messages.ListByOffering(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		out = append(out, renderMessage(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
}

type sendMessageRequest struct {
	Content     string                `json:"content"`
	Attachments []offering.Attachment `json:"attachments"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid offering id")
		return
	}

	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	m, err := s.deps.Commands.SendMessage.Handle(r.Context(), command.SendMessageCommand{
		ActorID:     actorID(r),
		OfferingID:  id,
		Content:     req.Content,
		Attachments: req.Attachments,
		SocketID:    r.Header.Get("X-Socket-ID"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": renderMessage(m)})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid message id")
		return
	}

	err = s.deps.Commands.DeleteMessage.Handle(r.Context(), command.DeleteMessageCommand{
		ActorID:   actorID(r),
		MessageID: id,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ═══════════════════════════════════════════════════════════════════════════
// Tutor profiles
// ═══════════════════════════════════════════════════════════════════════════

type tutorProfileRequest struct {
	Expertise   string  `json:"expertise"`
	Bio         string  `json:"bio"`
	HourlyRate  float64 `json:"hourly_rate"`
	Schedule    string  `json:"schedule"`
	IsAvailable bool    `json:"is_available"`
}

func (s *Server) handleCreateTutorProfile(w http.ResponseWriter, r *http.Request) {
	var req tutorProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	p, err := s.deps.Commands.TutorProfile.Create(r.Context(), command.CreateTutorProfileCommand{
		ActorID:    actorID(r),
		Expertise:  req.Expertise,
		Bio:        req.Bio,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"profile": renderTutorProfile(p)})
}

func (s *Server) handleUpdateTutorProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid profile id")
		return
	}

	var req tutorProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	p, err := s.deps.Commands.TutorProfile.Update(r.Context(), command.UpdateTutorProfileCommand{
		ActorID:     actorID(r),
		ProfileID:   id,
		Expertise:   req.Expertise,
		Bio:         req.Bio,
		HourlyRate:  req.HourlyRate,
		Schedule:    req.Schedule,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": renderTutorProfile(p)})
}

func (s *Server) handleDeleteTutorProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid profile id")
		return
	}

	err = s.deps.Commands.TutorProfile.Delete(r.Context(), command.DeleteTutorProfileCommand{
		ActorID:   actorID(r),
		ProfileID: id,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyTutorRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (s *Server) handleVerifyTutor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid profile id")
		return
	}

	var req verifyTutorRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	p, err := s.deps.Commands.VerifyTutor.Handle(r.Context(), command.VerifyTutorCommand{
		ActorID:   actorID(r),
		ProfileID: id,
		Approve:   req.Approve,
		Note:      req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": renderTutorProfile(p)})
}

func (s *Server) handleListPendingTutors(w http.ResponseWriter, r *http.Request) {
	actor, err := s.deps.Users.GetByID(r.Context(), actorID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !s.deps.Policies.TutorProfile.Verify(actor) {
		writeDomainError(w, shared.Denied("tutor", "ListPending"))
		return
	}

	profiles, err := s.deps.Tutors.ListPending(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, renderTutorProfile(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": out})
}

// ═══════════════════════════════════════════════════════════════════════════
// User profiles
// ═══════════════════════════════════════════════════════════════════════════

type userProfileRequest struct {
	Bio        string `json:"bio"`
	AvatarPath string `json:"avatar_path"`
}

func (s *Server) handleCreateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req userProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	p, err := s.deps.Commands.UserProfile.Create(r.Context(), command.CreateUserProfileCommand{
		ActorID:    actorID(r),
		Bio:        req.Bio,
		AvatarPath: req.AvatarPath,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"profile": renderUserProfile(p)})
}

func (s *Server) handleUpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req userProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	p, err := s.deps.Commands.UserProfile.Update(r.Context(), command.UpdateUserProfileCommand{
		ActorID:    actorID(r),
		Bio:        req.Bio,
		AvatarPath: req.AvatarPath,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": renderUserProfile(p)})
}

func (s *Server) handleDeleteUserProfile(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Commands.UserProfile.Delete(r.Context(), command.DeleteUserProfileCommand{
		ActorID: actorID(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ═══════════════════════════════════════════════════════════════════════════
// Dashboard
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.Queries.Dashboard.Handle(r.Context(), query.GetDashboardQuery{
		UserID: actorID(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dashboard": dto})
}

// ═══════════════════════════════════════════════════════════════════════════
// Request and render helpers
// ═══════════════════════════════════════════════════════════════════════════

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(key))
}

func listOptions(r *http.Request) offering.ListOptions {
	opts := offering.ListOptions{Limit: 50}

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	return opts
}

func renderUser(u *user.User) map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"role":        u.Role,
		"is_verified": u.IsVerified,
		"created_at":  timeutil.ISO8601(u.CreatedAt),
	}
}

func renderOffering(o *offering.Offering) map[string]interface{} {
	out := map[string]interface{}{
		"id":          o.ID,
		"title":       o.Title,
		"description": o.Description,
		"status":      o.Status,
		"user_id":     o.UserID,
		"budget":      o.Budget,
		"attachments": o.Attachments,
		"created_at":  timeutil.ISO8601(o.CreatedAt),
		"updated_at":  timeutil.ISO8601(o.UpdatedAt),
	}
	if o.TutorID != nil {
		out["tutor_id"] = *o.TutorID
	}
	if o.Deadline != nil {
		out["deadline"] = timeutil.ISO8601(*o.Deadline)
	}
	return out
}

func renderMessage(m *message.Message) map[string]interface{} {
	return map[string]interface{}{
		"id":          m.ID,
		"offering_id": m.OfferingID,
		"user_id":     m.UserID,
		"content":     m.Content,
		"attachments": m.Attachments,
		"created_at":  timeutil.ISO8601(m.CreatedAt),
	}
}

func renderTutorProfile(p *tutor.Profile) map[string]interface{} {
	out := map[string]interface{}{
		"id":                  p.ID,
		"user_id":             p.UserID,
		"expertise":           p.Expertise,
		"bio":                 p.Bio,
		"hourly_rate":         p.HourlyRate,
		"schedule":            p.Schedule,
		"verification_status": p.VerificationStatus,
		"is_verified":         p.IsVerified,
		"is_available":        p.IsAvailable,
		"created_at":          timeutil.ISO8601(p.CreatedAt),
	}
	if p.VerificationNote != nil {
		out["verification_note"] = *p.VerificationNote
	}
	return out
}

func renderUserProfile(p *user.Profile) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID,
		"user_id":     p.UserID,
		"bio":         p.Bio,
		"avatar_path": p.AvatarPath,
		"is_verified": p.IsVerified,
		"created_at":  timeutil.ISO8601(p.CreatedAt),
	}
}
