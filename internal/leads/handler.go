package leads

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eduims/eduims-backend/internal/auth"
	"github.com/eduims/eduims-backend/internal/platform/httpx"
	"github.com/eduims/eduims-backend/internal/shared"
)

const maxAttachmentSize = 20 << 20 // 20 MiB

// Handler serves the lead pipeline HTTP surface.
type Handler struct {
	logger *slog.Logger
	svc    *Service
	codec  *shared.IDCodec
}

// NewHandler constructs the leads handler.
func NewHandler(logger *slog.Logger, svc *Service, codec *shared.IDCodec) *Handler {
	return &Handler{logger: logger, svc: svc, codec: codec}
}

// MountRoutes attaches lead routes gated by per-form rights.
func (h *Handler) MountRoutes(r chi.Router, mw *auth.Middleware) {
	canView := func(fr *auth.FormRights) bool { return fr.CanView }
	canCreate := func(fr *auth.FormRights) bool { return fr.CanCreate }
	canEdit := func(fr *auth.FormRights) bool { return fr.CanEdit }
	canDelete := func(fr *auth.FormRights) bool { return fr.CanDelete }

	r.Route("/leads", func(r chi.Router) {
		r.Use(mw.RequireUser)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canView)).Get("/", h.list)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canView)).Get("/{id}", h.get)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canCreate)).Post("/", h.create)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canEdit)).Put("/{id}", h.update)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canDelete)).Delete("/{id}", h.delete)

		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canEdit)).Post("/{id}/forward", h.forward)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canEdit)).Post("/{id}/acknowledge", h.acknowledge)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canEdit)).Post("/{id}/quote", h.quote)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canEdit)).Post("/{id}/finalize", h.finalize)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canEdit)).Post("/{id}/close", h.close)
		r.With(mw.RequireFormRight(auth.MenuKeyLeads, canEdit)).Post("/{id}/incentive-paid", h.incentivePaid)
	})
}

func (h *Handler) recordID(r *http.Request) (int64, error) {
	return h.codec.Decode(chi.URLParam(r, "id"))
}

func (h *Handler) respondLead(w http.ResponseWriter, status int, lead *Lead, acts []Activity) {
	if acts == nil {
		acts = []Activity{}
	}
	httpx.JSON(w, status, LeadResponse{
		RecordID:   h.codec.Encode(lead.ID),
		Lead:       *lead,
		Activities: acts,
	})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "lead not found")
	case errors.Is(err, shared.ErrInvalidRecordID):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid record id")
	case isTransitionError(err):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrForwardTargetNeeded):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Cannot Forward Lead", err.Error())
	case errors.As(err, &verrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verrs.Error())
	default:
		h.logger.Error("lead request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func isTransitionError(err error) bool {
	for _, sentinel := range []error{
		ErrLeadClosed, ErrLeadFinalized, ErrNotForwarded,
		ErrNotQuotable, ErrNotFinalizable, ErrNotFinalizedYet, ErrIncentiveSettled,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req SaveLeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	lead, err := h.svc.Create(r.Context(), req, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusCreated, lead, nil)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req SaveLeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	lead, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusOK, lead, nil)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	lead, acts, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusOK, lead, acts)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListLeadsFilter{
		Status: Status(q.Get("status")),
		Search: q.Get("search"),
	}
	if raw := q.Get("session_id"); raw != "" {
		f.SessionID, _ = strconv.ParseInt(raw, 10, 64)
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	items, pg, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	for i := range items {
		items[i].RecordID = h.codec.Encode(items[i].ID)
	}
	if items == nil {
		items = []LeadSummary{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": pg,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req ForwardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	lead, err := h.svc.Forward(r.Context(), id, req, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusOK, lead, nil)
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	lead, err := h.svc.Acknowledge(r.Context(), id, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusOK, lead, nil)
}

// offerRequest reads the multipart quote/finalize form: amount, description
// and an optional attachment part.
func (h *Handler) offerRequest(r *http.Request) (QuoteRequest, *AttachmentUpload, error) {
	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		return QuoteRequest{}, nil, err
	}
	amount, _ := strconv.ParseFloat(r.FormValue("amount"), 64)
	req := QuoteRequest{
		Amount:      amount,
		Description: r.FormValue("description"),
	}
	file, header, err := r.FormFile("attachment")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, nil
		}
		return QuoteRequest{}, nil, err
	}
	up := &AttachmentUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return req, up, nil
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	h.recordOffer(w, r, h.svc.Quote)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	h.recordOffer(w, r, h.svc.Finalize)
}

type offerFunc func(ctx context.Context, id int64, req QuoteRequest, up *AttachmentUpload, userID int64) (*Lead, error)

func (h *Handler) recordOffer(w http.ResponseWriter, r *http.Request, op offerFunc) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	req, up, err := h.offerRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed multipart body")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	lead, err := op(r.Context(), id, req, up, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusOK, lead, nil)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req CloseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	lead, err := h.svc.Close(r.Context(), id, req, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusOK, lead, nil)
}

func (h *Handler) incentivePaid(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	lead, err := h.svc.MarkIncentivePaid(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondLead(w, http.StatusOK, lead, nil)
}
