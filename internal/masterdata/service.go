package masterdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eduims/eduims-backend/internal/platform/cache"
	"github.com/eduims/eduims-backend/internal/shared"
)

// Cache keys for the dropdown sources. Per-customer and per-account lists
// carry the raw id in the key; the key never leaves the server.
const (
	cacheKeyBusinessUnits = "select:business_units"
	cacheKeyProducts      = "select:products"
	cacheKeyServices      = "select:service_offerings"
	cacheKeyCustomers     = "select:customers"
	cacheKeySessions      = "select:sessions"
)

// Service owns master data use cases and the cached dropdown sources.
type Service struct {
	repo     *Repository
	cache    *cache.JSONCache
	codec    *shared.IDCodec
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService wires the master data service.
func NewService(repo *Repository, c *cache.JSONCache, codec *shared.IDCodec, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		codec:    codec,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("select cache invalidation failed", slog.Any("error", err))
	}
}

// selectItems loads a cached label list and encodes the ids for the client.
func (s *Service) selectItems(ctx context.Context, key string, loader func(context.Context) ([]labelRow, error)) ([]SelectItem, error) {
	var rows []labelRow
	err := s.cache.Fetch(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
		return loader(ctx)
	})
	if err != nil {
		return nil, err
	}
	items := make([]SelectItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, SelectItem{RecordID: s.codec.Encode(row.ID), Label: row.Label})
	}
	return items, nil
}

// SelectBusinessUnits returns active business units for dropdowns.
func (s *Service) SelectBusinessUnits(ctx context.Context) ([]SelectItem, error) {
	return s.selectItems(ctx, cacheKeyBusinessUnits, s.repo.SelectBusinessUnits)
}

// SelectProducts returns active products for dropdowns.
func (s *Service) SelectProducts(ctx context.Context) ([]SelectItem, error) {
	return s.selectItems(ctx, cacheKeyProducts, s.repo.SelectProducts)
}

// SelectServiceOfferings returns active service offerings for dropdowns.
func (s *Service) SelectServiceOfferings(ctx context.Context) ([]SelectItem, error) {
	return s.selectItems(ctx, cacheKeyServices, s.repo.SelectServiceOfferings)
}

// SelectCustomers returns active customers for dropdowns.
func (s *Service) SelectCustomers(ctx context.Context) ([]SelectItem, error) {
	return s.selectItems(ctx, cacheKeyCustomers, s.repo.SelectCustomers)
}

// SelectSessions returns all sessions for dropdowns.
func (s *Service) SelectSessions(ctx context.Context) ([]SelectItem, error) {
	return s.selectItems(ctx, cacheKeySessions, s.repo.SelectSessions)
}

// SelectAccounts returns the ledger accounts of one customer.
func (s *Service) SelectAccounts(ctx context.Context, customerID int64) ([]SelectItem, error) {
	key := fmt.Sprintf("select:accounts:%d", customerID)
	return s.selectItems(ctx, key, func(ctx context.Context) ([]labelRow, error) {
		return s.repo.SelectAccounts(ctx, customerID)
	})
}

// SelectBranches returns the branches billed through one ledger account.
func (s *Service) SelectBranches(ctx context.Context, accountID int64) ([]SelectItem, error) {
	key := fmt.Sprintf("select:branches:%d", accountID)
	return s.selectItems(ctx, key, func(ctx context.Context) ([]labelRow, error) {
		return s.repo.SelectBranches(ctx, accountID)
	})
}

// SaveBusinessUnitRequest creates or renames a business unit.
type SaveBusinessUnitRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	IsActive bool   `json:"is_active"`
}

// CreateBusinessUnit registers a new active unit.
func (s *Service) CreateBusinessUnit(ctx context.Context, req SaveBusinessUnitRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateBusinessUnit(ctx, req.Name)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, cacheKeyBusinessUnits)
	return id, nil
}

// UpdateBusinessUnit renames or toggles a unit.
func (s *Service) UpdateBusinessUnit(ctx context.Context, id int64, req SaveBusinessUnitRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	if err := s.repo.UpdateBusinessUnit(ctx, id, req.Name, req.IsActive); err != nil {
		return err
	}
	s.invalidate(ctx, cacheKeyBusinessUnits)
	return nil
}

// ListBusinessUnits returns all units with encoded record ids.
func (s *Service) ListBusinessUnits(ctx context.Context) ([]BusinessUnit, error) {
	units, err := s.repo.ListBusinessUnits(ctx)
	if err != nil {
		return nil, err
	}
	for i := range units {
		units[i].RecordID = s.codec.Encode(units[i].ID)
	}
	return units, nil
}

// SaveCatalogItemRequest covers products and service offerings.
type SaveCatalogItemRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Info     string `json:"info" validate:"max=1000"`
	IsActive bool   `json:"is_active"`
}

// CreateProduct registers a catalogue product.
func (s *Service) CreateProduct(ctx context.Context, req SaveCatalogItemRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateProduct(ctx, req.Name, req.Info)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, cacheKeyProducts)
	return id, nil
}

// UpdateProduct rewrites a catalogue product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req SaveCatalogItemRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, id, req.Name, req.Info, req.IsActive); err != nil {
		return err
	}
	s.invalidate(ctx, cacheKeyProducts)
	return nil
}

// ListProducts returns the catalogue with encoded record ids.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].RecordID = s.codec.Encode(products[i].ID)
	}
	return products, nil
}

// CreateServiceOffering registers a sellable service.
func (s *Service) CreateServiceOffering(ctx context.Context, req SaveCatalogItemRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateServiceOffering(ctx, req.Name, req.Info)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, cacheKeyServices)
	return id, nil
}

// UpdateServiceOffering rewrites a sellable service.
func (s *Service) UpdateServiceOffering(ctx context.Context, id int64, req SaveCatalogItemRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	if err := s.repo.UpdateServiceOffering(ctx, id, req.Name, req.Info, req.IsActive); err != nil {
		return err
	}
	s.invalidate(ctx, cacheKeyServices)
	return nil
}

// ListServiceOfferings returns the offerings with encoded record ids.
func (s *Service) ListServiceOfferings(ctx context.Context) ([]ServiceOffering, error) {
	offerings, err := s.repo.ListServiceOfferings(ctx)
	if err != nil {
		return nil, err
	}
	for i := range offerings {
		offerings[i].RecordID = s.codec.Encode(offerings[i].ID)
	}
	return offerings, nil
}

// SaveCustomerRequest creates or updates a customer.
type SaveCustomerRequest struct {
	Name         string `json:"customer_name" validate:"required,max=200"`
	BusinessName string `json:"business_name" validate:"max=200"`
	Email        string `json:"email" validate:"omitempty,email"`
	WhatsAppNo   string `json:"whatsapp_no" validate:"max=30"`
	IsActive     bool   `json:"is_active"`
}

// CreateCustomer registers a customer with a default ledger account carrying
// the customer's own name.
func (s *Service) CreateCustomer(ctx context.Context, req SaveCustomerRequest) (*Customer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	c := &Customer{
		Name:         req.Name,
		BusinessName: req.BusinessName,
		Email:        req.Email,
		WhatsAppNo:   req.WhatsAppNo,
	}
	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.AddLedgerAccount(ctx, id, req.Name); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyCustomers)
	return s.GetCustomer(ctx, id)
}

// UpdateCustomer rewrites customer details.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, req SaveCustomerRequest) (*Customer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	c := &Customer{
		ID:           id,
		Name:         req.Name,
		BusinessName: req.BusinessName,
		Email:        req.Email,
		WhatsAppNo:   req.WhatsAppNo,
		IsActive:     req.IsActive,
	}
	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyCustomers)
	return s.GetCustomer(ctx, id)
}

// GetCustomer loads a customer tree with encoded record ids throughout.
func (s *Service) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.RecordID = s.codec.Encode(c.ID)
	for i := range c.Accounts {
		c.Accounts[i].RecordID = s.codec.Encode(c.Accounts[i].ID)
		for j := range c.Accounts[i].Branches {
			c.Accounts[i].Branches[j].RecordID = s.codec.Encode(c.Accounts[i].Branches[j].ID)
		}
	}
	return c, nil
}

// ListCustomers searches customers by name.
func (s *Service) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	customers, err := s.repo.ListCustomers(ctx, search)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		customers[i].RecordID = s.codec.Encode(customers[i].ID)
	}
	return customers, nil
}

// AddAccountRequest attaches a ledger account to a customer.
type AddAccountRequest struct {
	Title string `json:"account_title" validate:"required,max=200"`
}

// AddLedgerAccount attaches an account and drops the customer's account
// dropdown from the cache.
func (s *Service) AddLedgerAccount(ctx context.Context, customerID int64, req AddAccountRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	id, err := s.repo.AddLedgerAccount(ctx, customerID, req.Title)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, fmt.Sprintf("select:accounts:%d", customerID))
	return id, nil
}

// AddBranchRequest attaches a branch to a ledger account.
type AddBranchRequest struct {
	Name    string `json:"branch_name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
}

// AddBranch attaches a branch under a ledger account.
func (s *Service) AddBranch(ctx context.Context, accountID int64, req AddBranchRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	id, err := s.repo.AddBranch(ctx, accountID, req.Name, req.Address)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, fmt.Sprintf("select:branches:%d", accountID))
	return id, nil
}

// SaveSessionRequest creates a financial period.
type SaveSessionRequest struct {
	Title    string `json:"title" validate:"required,max=100"`
	StartsAt string `json:"starts_at" validate:"required,datetime=2006-01-02"`
	EndsAt   string `json:"ends_at" validate:"required,datetime=2006-01-02"`
}

// CreateSession registers a financial period.
func (s *Service) CreateSession(ctx context.Context, req SaveSessionRequest) (*Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	sess := &Session{Title: req.Title}
	sess.StartsAt, _ = parseDate(req.StartsAt)
	sess.EndsAt, _ = parseDate(req.EndsAt)
	if _, err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeySessions)
	sess.RecordID = s.codec.Encode(sess.ID)
	return sess, nil
}

// ListSessions returns all periods with encoded record ids.
func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].RecordID = s.codec.Encode(sessions[i].ID)
	}
	return sessions, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// SetCurrentSession switches the active period.
func (s *Service) SetCurrentSession(ctx context.Context, id int64) error {
	if err := s.repo.SetCurrentSession(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cacheKeySessions)
	return nil
}
