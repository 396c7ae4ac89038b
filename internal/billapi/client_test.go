package billapi_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mmynk/billsplitter/internal/apitest"
	"github.com/mmynk/billsplitter/internal/billapi"
	"github.com/mmynk/billsplitter/internal/metrics"
	"github.com/mmynk/billsplitter/internal/middleware"
	"github.com/mmynk/billsplitter/internal/models"
)

func TestClientRoundTrip(t *testing.T) {
	_, url := apitest.Start(t)
	client := billapi.New(url, billapi.WithTimeout(5*time.Second))
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	alice, err := client.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	bob, err := client.CreateUser(ctx, "Bob")
	require.NoError(t, err)

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{*alice, *bob}, users)

	bill, err := client.CreateBill(ctx, models.BillCreate{
		Description: "Dinner",
		TotalAmount: 50,
		Tax:         5,
		Tip:         10,
		CreatedBy:   alice.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, bill.ID)
	assert.Equal(t, "Alice", bill.CreatorName())

	err = client.ShareBill(ctx, bill.ID, models.ShareAllocation{Shares: map[int64]float64{
		alice.ID: 30,
		bob.ID:   20,
	}})
	require.NoError(t, err)

	shares, err := client.ListBillShares(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	owed := map[string]float64{}
	for _, s := range shares {
		owed[s.Owner.Name] = s.TotalOwed
	}
	assert.Equal(t, map[string]float64{"Alice": 39, "Bob": 26}, owed)

	err = client.UpdateBill(ctx, bill.ID, models.BillCreate{
		Description: "Late dinner",
		TotalAmount: 50,
		Tax:         5,
		Tip:         10,
		CreatedBy:   bob.ID,
	})
	require.NoError(t, err)

	got, err := client.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "Late dinner", got.Description)
	assert.Equal(t, bob.ID, got.CreatorID())

	userBills, err := client.ListUserBills(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, userBills, 1)
	assert.Equal(t, bill.ID, userBills[0].ID)

	err = client.ShareBill(ctx, bill.ID, models.ShareAllocation{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, billapi.StatusCode(err))

	require.NoError(t, client.DeleteBill(ctx, bill.ID))

	_, err = client.GetBill(ctx, bill.ID)
	require.Error(t, err)
	assert.True(t, billapi.IsNotFound(err))
}

func TestClientRequestError(t *testing.T) {
	api, url := apitest.Start(t)
	client := billapi.New(url)
	ctx := context.Background()

	api.Fail("DELETE /bills/{id}", http.StatusInternalServerError)

	err := client.DeleteBill(ctx, 7)
	require.Error(t, err)
	assert.Equal(t, "failed to delete bill: DELETE /bills/7 returned 500 Internal Server Error", err.Error())
	assert.Equal(t, http.StatusInternalServerError, billapi.StatusCode(err))
	assert.False(t, billapi.IsNotFound(err))
}

func TestClientShareMismatchIsBadRequest(t *testing.T) {
	api, url := apitest.Start(t)
	client := billapi.New(url)
	ctx := context.Background()

	user, err := api.Store().CreateUser(ctx, "Alice")
	require.NoError(t, err)
	bill, err := client.CreateBill(ctx, models.BillCreate{TotalAmount: 40, CreatedBy: user.ID})
	require.NoError(t, err)

	err = client.ShareBill(ctx, bill.ID, models.ShareAllocation{Shares: map[int64]float64{user.ID: 30}})
	assert.Equal(t, http.StatusBadRequest, billapi.StatusCode(err))
}

func TestClientPropagatesRequestID(t *testing.T) {
	var gotID, gotTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(middleware.RequestIDHeader)
		gotTrace = r.Header.Get("Traceparent")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	client := billapi.New(srv.URL)
	ctx := middleware.WithRequestID(context.Background(), "7f1f7a4e-4c1b-4a44-9a40-2f3c1d3f0b6e")

	_, err := client.ListBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7f1f7a4e-4c1b-4a44-9a40-2f3c1d3f0b6e", gotID)
	// The default global provider is a no-op, so there is no span to inject.
	assert.Empty(t, gotTrace)
}

func TestClientDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	client := billapi.New(srv.URL)
	_, err := client.GetBill(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode fetch bill response")
	assert.Zero(t, billapi.StatusCode(err))
}

func TestClientTimeout(t *testing.T) {
	api, url := apitest.Start(t)
	api.Stall("GET /bills")

	client := billapi.New(url, billapi.WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := client.ListBills(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, billapi.StatusCode(err))
}

func TestClientRecordsSpansAndMetrics(t *testing.T) {
	api, url := apitest.Start(t)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	m := metrics.New()

	client := billapi.New(url, billapi.WithTracerProvider(tp), billapi.WithMetrics(m))
	ctx := context.Background()

	_, err := client.ListUsers(ctx)
	require.NoError(t, err)
	_, err = client.GetBill(ctx, 42)
	require.True(t, billapi.IsNotFound(err))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "billapi.ListUsers", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "billapi.GetBill", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `billapi_requests_total{code="200",op="ListUsers"} 1`)
	assert.Contains(t, body, `billapi_requests_total{code="404",op="GetBill"} 1`)

	assert.Equal(t, 2, api.CountRequests("GET *"))
}
