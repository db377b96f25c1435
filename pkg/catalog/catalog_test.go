package catalog

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/scryfall-client/internal/testutil"
	"github.com/Sternrassler/scryfall-client/pkg/client"
)

const setsBody = `{
  "object": "list",
  "has_more": false,
  "data": [
    {"object": "set", "id": "2ec77b94-6d47-4891-a480-5d0b4e5c9372", "code": "lea", "name": "Limited Edition Alpha", "set_type": "core", "released_at": "1993-08-05", "card_count": 295},
    {"object": "set", "id": "5f8287b1-5bb6-5f4c-ad17-316a40d5bb0c", "code": "ust", "name": "Unstable", "set_type": "funny", "released_at": "2017-12-08", "card_count": 216}
  ]
}`

func newTestClient(t *testing.T, mock *testutil.MockScryfall) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("CollectionTrackerTest/1.0")
	cfg.BaseURL = mock.URL()
	cfg.Retry = client.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestListSets(t *testing.T) {
	mock := testutil.NewMockScryfall()
	defer mock.Close()
	mock.SetResponse(SetsEndpoint, testutil.NewJSONResponse(setsBody))

	sets, err := ListSets(context.Background(), newTestClient(t, mock))
	if err != nil {
		t.Fatalf("ListSets() error = %v", err)
	}

	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2", len(sets))
	}
	if sets[0].Code != "lea" || sets[0].Name != "Limited Edition Alpha" || sets[0].CardCount != 295 {
		t.Errorf("sets[0] = %+v", sets[0])
	}
	if sets[1].SetType != "funny" || sets[1].ID.String() != "5f8287b1-5bb6-5f4c-ad17-316a40d5bb0c" {
		t.Errorf("sets[1] = %+v", sets[1])
	}
}

func TestListSets_MissingData(t *testing.T) {
	mock := testutil.NewMockScryfall()
	defer mock.Close()
	mock.SetResponse(SetsEndpoint, testutil.NewJSONResponse(`{"object":"list"}`))

	if _, err := ListSets(context.Background(), newTestClient(t, mock)); err == nil {
		t.Error("expected error for a response without data")
	}
}

func TestListSets_APIError(t *testing.T) {
	mock := testutil.NewMockScryfall()
	defer mock.Close()
	mock.SetResponse(SetsEndpoint, testutil.MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"object":"error","status":404,"code":"not_found","details":"gone"}`,
	})

	_, err := ListSets(context.Background(), newTestClient(t, mock))

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "not_found" {
		t.Errorf("error = %v, want not_found APIError", err)
	}
}
