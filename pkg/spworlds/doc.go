// Package spworlds provides a client for the SPWorlds public economy API.
//
// The API manages cards: five digit accounts holding a balance. A card is
// addressed by its id and token, which the client combines into a bearer
// token for every request. The same token keys the HMAC that signs the
// webhooks the platform sends back.
//
// # Basic Usage
//
//	client := spworlds.NewClient(&spworlds.ClientConfig{
//	    Credentials: spworlds.Credentials{CardID: "card-id", Token: "card-token"},
//	})
//
//	// Create a payment link
//	link, err := client.CreatePayment(ctx, &spworlds.PaymentRequest{
//	    Items:       []spworlds.PaymentItem{{Name: "Diamond pickaxe", Count: 1, Price: 24}},
//	    RedirectURL: "https://shop.example/thanks",
//	    WebhookURL:  "https://shop.example/webhooks/payment",
//	    Data:        "order-42",
//	})
//
//	// Send money to another card
//	result, err := client.SendTransaction(ctx, &spworlds.TransactionRequest{
//	    Receiver: "00001",
//	    Amount:   24,
//	    Comment:  "Diamond pickaxe",
//	})
//
// Requests are validated before they are sent; a *ValidationError means no
// request left the process.
//
// # Webhooks
//
// The platform signs each webhook body with HMAC-SHA256 keyed by the card
// token and sends the base64 digest in the X-Body-Hash header. Verify the
// raw bytes exactly as received:
//
//	body, _ := io.ReadAll(r.Body)
//	event, err := client.ParsePaymentWebhook(body, r.Header.Get(spworlds.HeaderBodyHash))
//
// # Error Handling
//
// Every error matches one kind with errors.Is:
//
//	_, err := client.SendTransaction(ctx, req)
//	switch {
//	case errors.Is(err, spworlds.ErrInsufficientFunds):
//	    // top up the card
//	case errors.Is(err, spworlds.ErrReceiverCardNotFound):
//	    // wrong card number
//	case errors.Is(err, spworlds.ErrUnexpectedResponseFormat):
//	    // blocked by anti-bot protection, slow down
//	}
//
// The client never retries. Batch helpers stop on the first failure and do
// not reverse transactions that were already sent.
package spworlds
