package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gigconnectportfolio/gigconnect-order-service/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlutterwaveVerify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transactions/4567/verify", r.URL.Path)
		assert.Equal(t, "Bearer FLWSECK-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":"success","message":"Transaction fetched successfully","data":{
			"id":4567,"tx_ref":"o-1-1700000000000-ABCDEF","amount":2750,"currency":"NGN",
			"status":"successful","payment_type":"card","app_fee":38.5}}`))
	}))
	defer srv.Close()

	client := gateway.NewFlutterwaveClient(srv.URL, "FLWSECK-test")
	v, err := client.VerifyTransaction(context.Background(), "4567")
	require.NoError(t, err)
	assert.Equal(t, "4567", v.TransactionID)
	assert.Equal(t, "o-1-1700000000000-ABCDEF", v.TxRef)
	assert.Equal(t, gateway.StatusSuccessful, v.Status)
	assert.Equal(t, 2750.0, v.Amount)
	assert.Equal(t, "card", v.PaymentType)
	assert.Equal(t, 38.5, v.AppFee)
}

func TestFlutterwaveVerify_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":"error","message":"No transaction was found for this id","data":null}`))
	}))
	defer srv.Close()

	client := gateway.NewFlutterwaveClient(srv.URL, "key")
	_, err := client.VerifyTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, gateway.ErrTransactionNotFound)
}

func TestFlutterwaveVerify_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"Invalid authorization key","data":null}`))
	}))
	defer srv.Close()

	client := gateway.NewFlutterwaveClient(srv.URL, "bad")
	_, err := client.VerifyTransaction(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid authorization key")
}

func TestFlutterwaveRefund(t *testing.T) {
	var body map[string]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions/4567/refund", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"status":"success","message":"Transaction refund initiated","data":{"id":99}}`))
	}))
	defer srv.Close()

	client := gateway.NewFlutterwaveClient(srv.URL+"/", "key")
	err := client.Refund(context.Background(), "4567", 2375)
	require.NoError(t, err)
	assert.Equal(t, 2375.0, body["amount"])
}

func TestFlutterwaveRefund_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := gateway.NewFlutterwaveClient(srv.URL, "key")
	assert.Error(t, client.Refund(context.Background(), "4567", 10))
}
