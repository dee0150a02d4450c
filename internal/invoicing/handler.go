package invoicing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eduims/eduims-backend/internal/auth"
	"github.com/eduims/eduims-backend/internal/platform/httpx"
	"github.com/eduims/eduims-backend/internal/shared"
)

// Handler serves the customer invoice HTTP surface. Record ids never leave
// the server in raw form; every URL carries the opaque token.
type Handler struct {
	logger *slog.Logger
	svc    *Service
	codec  *shared.IDCodec
}

// NewHandler constructs the invoice handler.
func NewHandler(logger *slog.Logger, svc *Service, codec *shared.IDCodec) *Handler {
	return &Handler{logger: logger, svc: svc, codec: codec}
}

// MountRoutes attaches invoice routes gated by per-form rights.
func (h *Handler) MountRoutes(r chi.Router, mw *auth.Middleware) {
	canView := func(fr *auth.FormRights) bool { return fr.CanView }
	canCreate := func(fr *auth.FormRights) bool { return fr.CanCreate }
	canEdit := func(fr *auth.FormRights) bool { return fr.CanEdit }
	canDelete := func(fr *auth.FormRights) bool { return fr.CanDelete }

	r.Route("/customer-invoices", func(r chi.Router) {
		r.Use(mw.RequireUser)
		r.With(mw.RequireFormRight(auth.MenuKeyCustomerInvoice, canView)).Get("/", h.list)
		r.With(mw.RequireFormRight(auth.MenuKeyCustomerInvoice, canView)).Get("/{id}", h.get)
		r.With(mw.RequireFormRight(auth.MenuKeyCustomerInvoice, canCreate)).Post("/", h.create)
		r.With(mw.RequireFormRight(auth.MenuKeyCustomerInvoice, canEdit)).Put("/{id}", h.update)
		r.With(mw.RequireFormRight(auth.MenuKeyCustomerInvoice, canDelete)).Delete("/{id}", h.delete)
		r.With(mw.RequireFormRight(auth.MenuKeyCustomerInvoice, canView)).Post("/{id}/send-email", h.sendEmail)
		r.With(mw.RequireFormRight(auth.MenuKeyCustomerInvoice, canView)).Post("/{id}/send-whatsapp", h.sendWhatsApp)
	})
}

func (h *Handler) recordID(r *http.Request) (int64, error) {
	return h.codec.Decode(chi.URLParam(r, "id"))
}

func (h *Handler) respondInvoice(w http.ResponseWriter, status int, inv *Invoice) {
	httpx.JSON(w, status, InvoiceResponse{
		RecordID: h.codec.Encode(inv.ID),
		Invoice:  *inv,
	})
}

// respondErr maps domain errors onto problem responses. Submission gate
// failures are client errors and carry the gate message verbatim.
func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
	case errors.Is(err, shared.ErrInvalidRecordID):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invalid record id")
	case isGateError(err):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Cannot Save Invoice", err.Error())
	case errors.As(err, &verrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verrs.Error())
	default:
		h.logger.Error("invoice request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func isGateError(err error) bool {
	for _, gate := range []error{
		ErrNoDetailRows, ErrIncompleteRow, ErrZeroNetTotal,
		ErrInstallmentsExceedTotal, ErrInstallmentsBelowTotal,
	} {
		if errors.Is(err, gate) {
			return true
		}
	}
	return false
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req SaveInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	inv, err := h.svc.Save(r.Context(), 0, req, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondInvoice(w, http.StatusCreated, inv)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req SaveInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	userID := shared.UserIDFromContext(r.Context())
	inv, err := h.svc.Save(r.Context(), id, req, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondInvoice(w, http.StatusOK, inv)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	h.respondInvoice(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f := ListInvoicesFilter{}
	q := r.URL.Query()
	if raw := q.Get("customer_id"); raw != "" {
		if id, err := h.codec.Decode(raw); err == nil {
			f.CustomerID = id
		}
	}
	if raw := q.Get("date_from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			f.DateFrom = t
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			f.DateTo = t
		}
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
		items = []InvoiceSummary{}
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

func (h *Handler) sendEmail(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if err := h.svc.NotifyEmail(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) sendWhatsApp(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if err := h.svc.NotifyWhatsApp(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
