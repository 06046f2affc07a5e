package paymentgateway

import (
	"fmt"

	"github.com/MinhChien3980/foodease-backend/lib/myerrors"
)

// Registry resolves a gateway name to its adapter. Registration happens once
// at startup, lookups are read-only afterwards.
type Registry struct {
	adapters map[Name]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: map[Name]Adapter{},
	}
}

func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Name()] = adapter
}

func (r *Registry) Get(name Name) (Adapter, error) {
	adapter, found := r.adapters[name]
	if !found {
		return nil, myerrors.NewNotFoundError(fmt.Errorf("unsupported payment gateway %s", name))
	}

	return adapter, nil
}

// GetStatusFetcher returns the adapter's polling side, if it has one.
func (r *Registry) GetStatusFetcher(name Name) (StatusFetcher, error) {
	adapter, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	fetcher, ok := adapter.(StatusFetcher)
	if !ok {
		return nil, myerrors.NewNotImplementedError(fmt.Errorf("gateway %s does not support status polling", name))
	}

	return fetcher, nil
}

// GetWebhookClassifier returns the adapter's webhook side, if it has one.
func (r *Registry) GetWebhookClassifier(name Name) (WebhookClassifier, error) {
	adapter, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	classifier, ok := adapter.(WebhookClassifier)
	if !ok {
		return nil, myerrors.NewNotImplementedError(fmt.Errorf("gateway %s does not accept webhooks", name))
	}

	return classifier, nil
}
