package pipeline

import (
	"context"
	"strings"

	"meetflow/internal/records"
	"meetflow/internal/services"
	"meetflow/internal/textutil"
)

// Resolution is the orchestrator's decision about which customer a session
// belongs to: either NewCustomer or MatchedCustomer.
type Resolution interface {
	isResolution()
}

// NewCustomer requests a fresh customer row. Unknown customers are never
// shared between sessions.
type NewCustomer struct {
	Name    string
	Unknown bool
}

// MatchedCustomer points at an existing known customer.
type MatchedCustomer struct {
	ID int64
}

func (NewCustomer) isResolution()     {}
func (MatchedCustomer) isResolution() {}

func (o *Orchestrator) decideCustomer(ctx context.Context, name string) (Resolution, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || textutil.FoldKey(name) == textutil.FoldKey(o.unknownName) {
		return NewCustomer{Name: o.unknownName, Unknown: true}, nil
	}
	found, err := o.store.FindKnownCustomer(ctx, name)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StepCustomer, "find customer", "lookup failed", err)
	}
	if found != nil {
		return MatchedCustomer{ID: found.ID}, nil
	}
	return NewCustomer{Name: name}, nil
}

func (o *Orchestrator) applyResolution(ctx context.Context, resolution Resolution) (*records.Customer, error) {
	switch r := resolution.(type) {
	case MatchedCustomer:
		customer, err := o.store.GetCustomer(ctx, r.ID)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, StepCustomer, "load customer", "lookup failed", err)
		}
		if customer == nil {
			return nil, services.Wrap(services.ErrNotFound, StepCustomer, "load customer", "matched customer disappeared", nil)
		}
		return customer, nil
	case NewCustomer:
		customer, err := o.store.CreateCustomer(ctx, r.Name, r.Unknown)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, StepCustomer, "create customer", "insert failed", err)
		}
		return customer, nil
	default:
		return nil, services.Wrap(services.ErrValidation, StepCustomer, "resolve customer", "unsupported resolution", nil)
	}
}

func (o *Orchestrator) resolveCustomer(ctx context.Context, name string) (*records.Customer, error) {
	resolution, err := o.decideCustomer(ctx, name)
	if err != nil {
		return nil, err
	}
	return o.applyResolution(ctx, resolution)
}
