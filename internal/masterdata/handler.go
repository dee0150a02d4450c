package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eduims/eduims-backend/internal/auth"
	"github.com/eduims/eduims-backend/internal/platform/httpx"
	"github.com/eduims/eduims-backend/internal/shared"
)

// Handler serves master data CRUD and the dropdown sources.
type Handler struct {
	logger *slog.Logger
	svc    *Service
	codec  *shared.IDCodec
}

// NewHandler constructs the master data handler.
func NewHandler(logger *slog.Logger, svc *Service, codec *shared.IDCodec) *Handler {
	return &Handler{logger: logger, svc: svc, codec: codec}
}

// MountRoutes attaches master data routes. Dropdown sources only need an
// authenticated user; CRUD is gated by the master data form rights.
func (h *Handler) MountRoutes(r chi.Router, mw *auth.Middleware) {
	canView := func(fr *auth.FormRights) bool { return fr.CanView }
	canCreate := func(fr *auth.FormRights) bool { return fr.CanCreate }
	canEdit := func(fr *auth.FormRights) bool { return fr.CanEdit }

	r.Route("/select", func(r chi.Router) {
		r.Use(mw.RequireUser)
		r.Get("/business-units", h.selectHandler(h.svc.SelectBusinessUnits))
		r.Get("/products", h.selectHandler(h.svc.SelectProducts))
		r.Get("/services", h.selectHandler(h.svc.SelectServiceOfferings))
		r.Get("/customers", h.selectHandler(h.svc.SelectCustomers))
		r.Get("/sessions", h.selectHandler(h.svc.SelectSessions))
		r.Get("/customers/{id}/accounts", h.selectAccounts)
		r.Get("/accounts/{id}/branches", h.selectBranches)
	})

	r.Route("/masterdata", func(r chi.Router) {
		r.Use(mw.RequireUser)
		view := mw.RequireFormRight(auth.MenuKeyMasterData, canView)
		create := mw.RequireFormRight(auth.MenuKeyMasterData, canCreate)
		edit := mw.RequireFormRight(auth.MenuKeyMasterData, canEdit)

		r.With(view).Get("/business-units", h.listBusinessUnits)
		r.With(create).Post("/business-units", h.createBusinessUnit)
		r.With(edit).Put("/business-units/{id}", h.updateBusinessUnit)

		r.With(view).Get("/products", h.listProducts)
		r.With(create).Post("/products", h.createProduct)
		r.With(edit).Put("/products/{id}", h.updateProduct)

		r.With(view).Get("/services", h.listServiceOfferings)
		r.With(create).Post("/services", h.createServiceOffering)
		r.With(edit).Put("/services/{id}", h.updateServiceOffering)

		r.With(view).Get("/customers", h.listCustomers)
		r.With(view).Get("/customers/{id}", h.getCustomer)
		r.With(create).Post("/customers", h.createCustomer)
		r.With(edit).Put("/customers/{id}", h.updateCustomer)
		r.With(edit).Post("/customers/{id}/accounts", h.addAccount)
		r.With(edit).Post("/accounts/{id}/branches", h.addBranch)

		r.With(view).Get("/sessions", h.listSessions)
		r.With(create).Post("/sessions", h.createSession)
		r.With(edit).Post("/sessions/{id}/make-current", h.makeCurrentSession)
	})
}

func (h *Handler) recordID(r *http.Request) (int64, error) {
	return h.codec.Decode(chi.URLParam(r, "id"))
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrInvalidRecordID):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
	case errors.As(err, &verrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verrs.Error())
	default:
		h.logger.Error("masterdata request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) selectHandler(load func(context.Context) ([]SelectItem, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := load(r.Context())
		if err != nil {
			h.respondErr(w, err)
			return
		}
		if items == nil {
			items = []SelectItem{}
		}
		httpx.JSON(w, http.StatusOK, items)
	}
}

func (h *Handler) selectAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	items, err := h.svc.SelectAccounts(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) selectBranches(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	items, err := h.svc.SelectBranches(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) listBusinessUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.svc.ListBusinessUnits(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, units)
}

func (h *Handler) createBusinessUnit(w http.ResponseWriter, r *http.Request) {
	var req SaveBusinessUnitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	id, err := h.svc.CreateBusinessUnit(r.Context(), req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"record_id": h.codec.Encode(id)})
}

func (h *Handler) updateBusinessUnit(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req SaveBusinessUnitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.svc.UpdateBusinessUnit(r.Context(), id, req); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req SaveCatalogItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	id, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"record_id": h.codec.Encode(id)})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req SaveCatalogItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.svc.UpdateProduct(r.Context(), id, req); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listServiceOfferings(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.svc.ListServiceOfferings(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offerings)
}

func (h *Handler) createServiceOffering(w http.ResponseWriter, r *http.Request) {
	var req SaveCatalogItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	id, err := h.svc.CreateServiceOffering(r.Context(), req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"record_id": h.codec.Encode(id)})
}

func (h *Handler) updateServiceOffering(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req SaveCatalogItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.svc.UpdateServiceOffering(r.Context(), id, req); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.ListCustomers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	c, err := h.svc.GetCustomer(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req SaveCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req SaveCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	c, err := h.svc.UpdateCustomer(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) addAccount(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req AddAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	accountID, err := h.svc.AddLedgerAccount(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"record_id": h.codec.Encode(accountID)})
}

func (h *Handler) addBranch(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	var req AddBranchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	branchID, err := h.svc.AddBranch(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"record_id": h.codec.Encode(branchID)})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessions)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req SaveSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	sess, err := h.svc.CreateSession(r.Context(), req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) makeCurrentSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.recordID(r)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if err := h.svc.SetCurrentSession(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
