// internal/api/handlers.go
package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "era-intake/internal/common/errors"
	"era-intake/internal/formspec"
	"era-intake/internal/generation"
)

const (
	msgGenerationFailed = "We could not generate follow-up questions right now. Please try again."
	msgSpecInvalid      = "The generated questionnaire did not pass validation. Please try again."
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type generateRequest struct {
	Prompt    string `json:"prompt"`
	MaxFields int    `json:"maxFields"`
}

type generateResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	*generation.Result
}

type answersRequest struct {
	Answers formspec.Answers `json:"answers"`
}

func (h *Handler) sessionID(r *http.Request) string {
	sess, _ := SessionFrom(r.Context())
	return sess.ID
}

func (h *Handler) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Application(r.Context(), h.sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) handleSaveSection(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	app, err := h.service.SaveSection(r.Context(), h.sessionID(r), chi.URLParam(r, "section"), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) handleSavePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.service.SavePrompt(r.Context(), h.sessionID(r), req.Prompt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// handleGenerate always answers 200 once the service was reached; ok tells the
// client whether a questionnaire was stored.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.Generate(r.Context(), h.sessionID(r), req.Prompt, req.MaxFields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := generateResponse{OK: result.Spec != nil, Result: result}
	switch {
	case result.Failed():
		resp.Message = msgGenerationFailed
	case result.Spec == nil:
		resp.Message = msgSpecInvalid
	}
	if !h.config.ExposeDebug {
		trimmed := *result
		trimmed.Raw = nil
		trimmed.Debug = generation.Debug{}
		resp.Result = &trimmed
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.Form(r.Context(), h.sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	form, err := h.service.Preview(r.Context(), h.sessionID(r), req.Answers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *Handler) handleSaveAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.service.SaveAnswers(r.Context(), h.sessionID(r), req.Answers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.Export(r.Context(), h.sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Submit(r.Context(), h.sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleClear drops the draft and issues a new session, so the browser starts over
// even when the old record was already submitted.
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), h.sessionID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	// a session issued by this very request already has a fresh cookie
	if sess, _ := SessionFrom(r.Context()); !sess.IsNew {
		h.newSession(w)
	}
	w.WriteHeader(http.StatusNoContent)
}
