package shipping

import (
	"context"

	"carriersync/internal/carrier"
	"carriersync/internal/model"
)

// fakeCarrier answers address, tariff and backlog calls from canned data.
type fakeCarrier struct {
	// cleaned maps an input address to its normalized form; unknown inputs are dropped.
	cleaned  map[string]model.NormalizedAddress
	cleanErr error
	inputs   [][]string

	tariff    *carrier.TariffResult
	tariffErr error
	queries   []map[string]any

	backlog    *carrier.BacklogResult
	backlogErr error
	payloads   []model.ShipmentPayload
	items      map[int64]carrier.BacklogItem
}

func (f *fakeCarrier) CleanAddresses(ctx context.Context, addresses []string) ([]model.NormalizedAddress, error) {
	f.inputs = append(f.inputs, addresses)
	if f.cleanErr != nil {
		return nil, f.cleanErr
	}
	var res []model.NormalizedAddress
	for _, a := range addresses {
		if addr, ok := f.cleaned[a]; ok {
			res = append(res, addr)
		}
	}
	return res, nil
}

func (f *fakeCarrier) Tariff(ctx context.Context, query map[string]any) (*carrier.TariffResult, error) {
	f.queries = append(f.queries, query)
	return f.tariff, f.tariffErr
}

func (f *fakeCarrier) CreateBacklog(ctx context.Context, payloads []model.ShipmentPayload) (*carrier.BacklogResult, error) {
	f.payloads = payloads
	return f.backlog, f.backlogErr
}

func (f *fakeCarrier) Backlog(ctx context.Context, id int64) (*carrier.BacklogItem, error) {
	item := f.items[id]
	return &item, nil
}

type fakeStore struct {
	addresses     map[int64]model.NormalizedAddress
	errors        map[int64]string
	confirmations []model.ShipmentConfirmation

	addressErr map[int64]error
	errorsErr  error
	confirmErr map[int64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		addresses: map[int64]model.NormalizedAddress{},
		errors:    map[int64]string{},
	}
}

func (s *fakeStore) SaveNormalizedAddress(ctx context.Context, orderID int64, addr model.NormalizedAddress) error {
	if err := s.addressErr[orderID]; err != nil {
		return err
	}
	s.addresses[orderID] = addr
	return nil
}

func (s *fakeStore) SaveCarrierErrors(ctx context.Context, orderID int64, text string) error {
	if s.errorsErr != nil {
		return s.errorsErr
	}
	s.errors[orderID] = text
	return nil
}

func (s *fakeStore) ConfirmShipment(ctx context.Context, c model.ShipmentConfirmation) error {
	if err := s.confirmErr[c.OrderID]; err != nil {
		return err
	}
	s.confirmations = append(s.confirmations, c)
	return nil
}

func goodAddress(index string) model.NormalizedAddress {
	return model.NormalizedAddress{
		Index:          index,
		Region:         "г Москва",
		Place:          "г Москва",
		Street:         "ул Тверская",
		House:          "1",
		QualityCode:    "GOOD",
		ValidationCode: "VALIDATED",
	}
}
