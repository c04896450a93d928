package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/apperror"
)

type fakeItemAPI struct {
	items    []domain.Item
	listErr  error
	detail   domain.ItemDetail
	getErr   error
	count    int
	countErr error

	lastQuery domain.ItemQuery
}

func (a *fakeItemAPI) ListItems(_ context.Context, q domain.ItemQuery) ([]domain.Item, error) {
	a.lastQuery = q
	return a.items, a.listErr
}

func (a *fakeItemAPI) GetItem(_ context.Context, id string) (domain.ItemDetail, error) {
	if a.getErr != nil {
		return domain.ItemDetail{}, a.getErr
	}
	d := a.detail
	d.ID = id
	return d, nil
}

func (a *fakeItemAPI) CountOffers(context.Context, string) (int, error) {
	return a.count, a.countErr
}

func newTestQueryClient(t *testing.T, api *fakeItemAPI) (*ItemQueryClient, *Reconciler, *fakeRenderer) {
	t.Helper()
	r, renderer := newTestReconciler(t, ViewConfig{})
	return NewItemQueryClient(api, r, testLogger()), r, renderer
}

func TestItemQueryClient_Query(t *testing.T) {
	api := &fakeItemAPI{items: sampleItems}
	c, _, renderer := newTestQueryClient(t, api)
	q := domain.ItemQuery{Text: "lamp", MaxPrice: "50"}

	if err := c.Apply(context.Background(), q); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if api.lastQuery != q {
		t.Errorf("query = %+v, want %+v", api.lastQuery, q)
	}

	snap := renderer.latest()
	got := make([]domain.Item, len(snap.Rows))
	for i, row := range snap.Rows {
		got[i] = row.Item
	}
	if !reflect.DeepEqual(got, sampleItems) {
		t.Errorf("rows = %+v", got)
	}
}

func TestItemQueryClient_QueryFailureShowsPlaceholder(t *testing.T) {
	api := &fakeItemAPI{items: sampleItems}
	c, _, renderer := newTestQueryClient(t, api)
	ctx := context.Background()

	c.Query(ctx, domain.ItemQuery{})
	api.listErr = apperror.New(apperror.CodeItemQueryFailed)

	if err := c.Query(ctx, domain.ItemQuery{Text: "x"}); err == nil {
		t.Fatal("expected an error")
	}
	snap := renderer.latest()
	if snap.Placeholder != PlaceholderLoadError || len(snap.Rows) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestItemQueryClient_ClearSendsEmptyQuery(t *testing.T) {
	api := &fakeItemAPI{}
	c, _, renderer := newTestQueryClient(t, api)

	c.Apply(context.Background(), domain.ItemQuery{Text: "lamp"})
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if !api.lastQuery.IsEmpty() {
		t.Errorf("query = %+v, want empty", api.lastQuery)
	}
	if renderer.latest().Placeholder != PlaceholderNoResults {
		t.Error("empty listing should show the no-results placeholder")
	}
}

func TestItemQueryClient_LoadDetail(t *testing.T) {
	tests := []struct {
		name      string
		api       *fakeItemAPI
		wantErr   bool
		wantCount int
	}{
		{
			name:      "with count",
			api:       &fakeItemAPI{detail: domain.ItemDetail{Item: domain.Item{Name: "Lamp", Price: "$10.00 USD"}}, count: 4},
			wantCount: 4,
		},
		{
			name:      "count unavailable",
			api:       &fakeItemAPI{detail: domain.ItemDetail{Item: domain.Item{Name: "Lamp"}}, countErr: errors.New("boom")},
			wantCount: 0,
		},
		{
			name:    "item missing",
			api:     &fakeItemAPI{getErr: apperror.New(apperror.CodeItemNotFound)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, renderer := newTestQueryClient(t, tt.api)

			err := c.LoadDetail(context.Background(), "5")
			snap := renderer.latest()

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if snap.Detail != nil {
					t.Error("detail opened despite the error")
				}
				if len(snap.Alerts) != 1 || snap.Alerts[0].Text != "Item not found" {
					t.Errorf("alerts = %+v", snap.Alerts)
				}
				return
			}

			if err != nil {
				t.Fatalf("LoadDetail() error = %v", err)
			}
			if snap.Detail == nil || snap.Detail.ID != "5" || snap.Detail.OfferCount != tt.wantCount {
				t.Errorf("detail = %+v", snap.Detail)
			}
		})
	}
}
