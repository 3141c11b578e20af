package spworlds

import (
	"context"
	"math"
	"time"
)

// Batch calls op once per item, strictly in order, waiting delay between
// calls. The first failure stops the batch: the results gathered so far are
// returned together with a *BatchError. Work already done remotely is not
// undone.
func Batch[In, Out any](ctx context.Context, items []In, delay time.Duration, op func(context.Context, In) (Out, error)) ([]Out, error) {
	results := make([]Out, 0, len(items))
	for i, item := range items {
		if i > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return results, &BatchError{Index: i, Err: err}
			}
		}

		out, err := op(ctx, item)
		if err != nil {
			return results, &BatchError{Index: i, Err: err}
		}
		results = append(results, out)
	}
	return results, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CreatePayments creates one payment link per request in order
func (c *Client) CreatePayments(ctx context.Context, reqs []PaymentRequest, delay time.Duration) ([]*PaymentLink, error) {
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
	}

	return Batch(ctx, reqs, delay, func(ctx context.Context, req PaymentRequest) (*PaymentLink, error) {
		return c.CreatePayment(ctx, &req)
	})
}

// SendTransactions sends transactions in order. Every request is validated
// and the card balance is checked against the batch total before anything
// is sent. The balance check does not reserve funds: a concurrent transfer
// can still make a later transaction fail.
func (c *Client) SendTransactions(ctx context.Context, reqs []TransactionRequest, delay time.Duration) ([]*TransactionResult, error) {
	total := 0
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
		total = addCapped(total, reqs[i].Amount)
	}
	if len(reqs) == 0 {
		return []*TransactionResult{}, nil
	}

	balance, err := c.Balance(ctx)
	if err != nil {
		return nil, err
	}
	if total == math.MaxInt || balance < total {
		return nil, &BalanceError{Balance: balance, Required: total}
	}

	return Batch(ctx, reqs, delay, func(ctx context.Context, req TransactionRequest) (*TransactionResult, error) {
		return c.SendTransaction(ctx, &req)
	})
}

// addCapped adds two non-negative amounts, saturating at math.MaxInt
func addCapped(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}
