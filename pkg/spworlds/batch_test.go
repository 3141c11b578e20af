package spworlds

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBatch_StopsOnFirstFailure(t *testing.T) {
	errB := errors.New("b failed")
	var invoked []string

	results, err := Batch(context.Background(), []string{"a", "b", "c"}, time.Millisecond,
		func(_ context.Context, item string) (string, error) {
			invoked = append(invoked, item)
			if item == "b" {
				return "", errB
			}
			return item + "-done", nil
		})

	if !errors.Is(err, errB) {
		t.Fatalf("Expected b's error, got %v", err)
	}

	var batchErr *BatchError
	if !errors.As(err, &batchErr) || batchErr.Index != 1 {
		t.Errorf("Expected BatchError at index 1, got %v", err)
	}

	if len(results) != 1 || results[0] != "a-done" {
		t.Errorf("Expected results [a-done], got %v", results)
	}

	if len(invoked) != 2 || invoked[1] != "b" {
		t.Errorf("Expected a and b to be invoked, got %v", invoked)
	}
}

func TestBatch_OrderAndDelay(t *testing.T) {
	delay := 20 * time.Millisecond
	var stamps []time.Time

	start := time.Now()
	results, err := Batch(context.Background(), []int{1, 2, 3}, delay,
		func(_ context.Context, n int) (int, error) {
			stamps = append(stamps, time.Now())
			return n * 10, nil
		})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 3 || results[0] != 10 || results[1] != 20 || results[2] != 30 {
		t.Errorf("Expected [10 20 30], got %v", results)
	}

	// two gaps, none after the last item
	if elapsed < 2*delay {
		t.Errorf("Expected at least %v, took %v", 2*delay, elapsed)
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < delay {
			t.Errorf("Gap %d was %v, expected at least %v", i, gap, delay)
		}
	}
}

func TestBatch_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Batch(ctx, []int{1, 2}, time.Hour, func(_ context.Context, n int) (int, error) {
		calls++
		cancel()
		return n, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected one call, got %d", calls)
	}
}

func TestSendTransactions(t *testing.T) {
	var sent []TransactionRequest
	balance := 100

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/card":
			json.NewEncoder(w).Encode(map[string]interface{}{"balance": balance, "webhook": nil})
		case "/transactions":
			body, _ := io.ReadAll(r.Body)
			var req TransactionRequest
			json.Unmarshal(body, &req)
			sent = append(sent, req)
			balance -= req.Amount
			json.NewEncoder(w).Encode(map[string]int{"balance": balance})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reqs := []TransactionRequest{
		{Receiver: "00001", Amount: 20, Comment: "Tax"},
		{Receiver: "00002", Amount: 80, Comment: "Salary"},
	}

	results, err := client.SendTransactions(context.Background(), reqs, time.Millisecond)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(sent) != 2 || sent[0].Receiver != "00001" || sent[1].Receiver != "00002" {
		t.Errorf("Expected transactions in order, got %+v", sent)
	}
	if results[1].Balance != 0 {
		t.Errorf("Expected final balance 0, got %d", results[1].Balance)
	}
}

func TestSendTransactions_BalanceTooLow(t *testing.T) {
	server := mockServer(t, http.MethodGet, "/card", nil, http.StatusOK, map[string]interface{}{"balance": 50})
	defer server.Close()

	reqs := []TransactionRequest{
		{Receiver: "00001", Amount: 20, Comment: "Tax"},
		{Receiver: "00002", Amount: 80, Comment: "Salary"},
	}
	_, err := newTestClient(server.URL).SendTransactions(context.Background(), reqs, time.Millisecond)

	var balErr *BalanceError
	if !errors.As(err, &balErr) {
		t.Fatalf("Expected BalanceError, got %v", err)
	}
	if balErr.Balance != 50 || balErr.Required != 100 {
		t.Errorf("Unexpected balance error: %+v", balErr)
	}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("Expected error to match ErrInsufficientFunds")
	}
}

func TestSendTransactions_HugeTotalDoesNotWrap(t *testing.T) {
	posts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/transactions" {
			posts++
		}
		json.NewEncoder(w).Encode(map[string]int{"balance": 5})
	}))
	defer server.Close()

	reqs := []TransactionRequest{
		{Receiver: "00001", Amount: math.MaxInt, Comment: "Tax"},
		{Receiver: "00002", Amount: math.MaxInt, Comment: "Salary"},
	}
	_, err := newTestClient(server.URL).SendTransactions(context.Background(), reqs, time.Millisecond)

	var balErr *BalanceError
	if !errors.As(err, &balErr) {
		t.Fatalf("Expected BalanceError, got %v", err)
	}
	if balErr.Required != math.MaxInt {
		t.Errorf("Expected required total capped at MaxInt, got %d", balErr.Required)
	}
	if posts != 0 {
		t.Errorf("Expected no transactions, got %d", posts)
	}
}

func TestAddCapped(t *testing.T) {
	if got := addCapped(2, 3); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}
	if got := addCapped(math.MaxInt-1, 2); got != math.MaxInt {
		t.Errorf("Expected MaxInt, got %d", got)
	}
}

func TestSendTransactions_InvalidItemSendsNothing(t *testing.T) {
	transport := &countingTransport{}
	client := NewClientWithHTTPClient(&ClientConfig{}, &http.Client{Transport: transport})

	reqs := []TransactionRequest{
		{Receiver: "00001", Amount: 20, Comment: "Tax"},
		{Receiver: "bad", Amount: 80, Comment: "Salary"},
	}
	_, err := client.SendTransactions(context.Background(), reqs, time.Millisecond)

	var batchErr *BatchError
	if !errors.As(err, &batchErr) || batchErr.Index != 1 {
		t.Fatalf("Expected BatchError at index 1, got %v", err)
	}
	if !errors.Is(err, ErrInvalidCardNumber) {
		t.Errorf("Expected ErrInvalidCardNumber, got %v", err)
	}
	if transport.calls != 0 {
		t.Errorf("Expected no requests, got %d", transport.calls)
	}
}

func TestCreatePayments_StopsOnServerFailure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"internal","message":"boom"}`))
			return
		}
		w.Write([]byte(`{"url":"https://spworlds.ru/pay/x"}`))
	}))
	defer server.Close()

	reqs := []PaymentRequest{validPayment(), validPayment(), validPayment()}
	links, err := newTestClient(server.URL).CreatePayments(context.Background(), reqs, time.Millisecond)

	if !errors.Is(err, ErrServer) {
		t.Fatalf("Expected ErrServer, got %v", err)
	}
	if len(links) != 1 {
		t.Errorf("Expected 1 link before failure, got %d", len(links))
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}
