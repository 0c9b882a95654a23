package api

import (
	"context"
	"strings"

	"meetflow/internal/records"
)

// RecordsReader is the records access needed by RecordsService.
type RecordsReader interface {
	GetCustomer(ctx context.Context, id int64) (*records.Customer, error)
	ListCustomerSummaries(ctx context.Context) ([]records.CustomerSummary, error)
	ListActionItems(ctx context.Context, customerID int64, includeCompleted bool) ([]*records.ActionItem, error)
	ListOpenActionItems(ctx context.Context, owner string) ([]*records.ActionItem, error)
	ToggleActionItem(ctx context.Context, id int64) (*records.ActionItem, error)
	DiagramForCustomer(ctx context.Context, customerID int64) (*records.Diagram, error)
	ListVersions(ctx context.Context, diagramID int64) ([]*records.DiagramVersion, error)
}

// RecordsService exposes customer, diagram and action item views.
type RecordsService struct {
	store RecordsReader
}

// NewRecordsService constructs a RecordsService.
func NewRecordsService(store RecordsReader) *RecordsService {
	return &RecordsService{store: store}
}

// Customers lists every customer with counts.
func (s *RecordsService) Customers(ctx context.Context) ([]Customer, error) {
	summaries, err := s.store.ListCustomerSummaries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Customer, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, FromCustomerSummary(summary))
	}
	return out, nil
}

// CustomerActions lists a customer's action items; completed ones only when
// includeCompleted is set.
func (s *RecordsService) CustomerActions(ctx context.Context, customerID int64, includeCompleted bool) ([]ActionItem, error) {
	if err := s.requireCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	items, err := s.store.ListActionItems(ctx, customerID, includeCompleted)
	if err != nil {
		return nil, err
	}
	return FromActionItems(items), nil
}

// OpenActions lists open action items across customers, optionally filtered
// by owner.
func (s *RecordsService) OpenActions(ctx context.Context, owner string) ([]ActionItem, error) {
	items, err := s.store.ListOpenActionItems(ctx, strings.TrimSpace(owner))
	if err != nil {
		return nil, err
	}
	return FromActionItems(items), nil
}

// CustomerDiagram returns the customer's diagram with every version.
func (s *RecordsService) CustomerDiagram(ctx context.Context, customerID int64) (*Diagram, error) {
	if err := s.requireCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	diagram, err := s.store.DiagramForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if diagram == nil {
		return nil, records.ErrNotFound
	}
	versions, err := s.store.ListVersions(ctx, diagram.ID)
	if err != nil {
		return nil, err
	}
	dto := FromDiagram(diagram, versions)
	return &dto, nil
}

// ToggleAction flips an action item's completion.
func (s *RecordsService) ToggleAction(ctx context.Context, id int64) (*ActionItem, error) {
	item, err := s.store.ToggleActionItem(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromActionItem(item)
	return &dto, nil
}

func (s *RecordsService) requireCustomer(ctx context.Context, id int64) error {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	if customer == nil {
		return records.ErrNotFound
	}
	return nil
}
