package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		name   string
		params []*Label
		want   string
	}{
		{"empty", nil, ""},
		{"ordered", []*Label{NewLabel("q", "lamp"), NewLabel("minPrice", "10")}, "q=lamp&minPrice=10"},
		{"escaped", []*Label{NewLabel("q", "a&b c")}, "q=a%26b+c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeQuery(tt.params); got != tt.want {
				t.Errorf("EncodeQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequest_QueryOrderAndRequestID(t *testing.T) {
	var gotQuery, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotID = r.Header.Get(HeaderRequestID)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1","name":"Lamp","price":"$12.00 USD"}]`))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(
		WithBaseURL(server.URL),
		WithProviderName("test"),
		WithRequestID(func() string { return "req-1" }),
	)
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}

	var items []map[string]string
	resp, err := client.NewRequestWithOptions().
		SetQueryParam("q", "lamp").
		SetQueryParam("minPrice", "10").
		SetResult(&items).
		Get(context.Background(), "/api/items")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if resp.IsError() {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if gotQuery != "q=lamp&minPrice=10" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotID != "req-1" {
		t.Errorf("request id = %q", gotID)
	}
	if len(items) != 1 || items[0]["name"] != "Lamp" {
		t.Errorf("items = %v", items)
	}
}

func TestRequest_PostJSONBody(t *testing.T) {
	var body map[string]any
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.NewRequestWithOptions().
		SetBody(map[string]any{"id": "7", "amount": 12.5}).
		Post(context.Background(), "api/offers")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if contentType != "application/json" {
		t.Errorf("content-type = %q", contentType)
	}
	if body["id"] != "7" || body["amount"] != 12.5 {
		t.Errorf("body = %v", body)
	}
}

func TestRequest_ErrorStatusKeepsBodyAndRecordsMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Item not found"}`))
	}))
	defer server.Close()

	reader := sdkmetric.NewManualReader()
	client, err := NewInstrumentedClient(
		WithBaseURL(server.URL),
		WithRequestTimeout(2*time.Second),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
	)
	if err != nil {
		t.Fatal(err)
	}

	var result map[string]string
	resp, err := client.NewRequestWithOptions(WithLabels(NewLabel("endpoint", "item"))).
		SetResult(&result).
		Get(context.Background(), "/api/items/99")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.IsError() || resp.String() != `{"message":"Item not found"}` {
		t.Errorf("response = %d %q", resp.StatusCode, resp.String())
	}
	if result["message"] != "Item not found" {
		t.Errorf("error body not decoded: %v", result)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != metricRequestCounter {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 {
				t.Fatalf("unexpected counter data %#v", m.Data)
			}
			dp := sum.DataPoints[0]
			if class, _ := dp.Attributes.Value("status_class"); class.AsString() != "4xx" {
				t.Errorf("status_class = %q", class.AsString())
			}
			if ep, _ := dp.Attributes.Value("endpoint"); ep.AsString() != "item" {
				t.Errorf("endpoint label = %q", ep.AsString())
			}
			found = dp.Value == 1
		}
	}
	if !found {
		t.Error("request counter not recorded")
	}
}

func TestRequest_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	client, err := NewInstrumentedClient(WithBaseURL(server.URL), WithMaxBodyBytes(16))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.NewRequestWithOptions().Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Body()) != 16 {
		t.Errorf("body length = %d, want 16", len(resp.Body()))
	}
}
