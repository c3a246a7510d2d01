package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
)

// StartAutoResubmit retries the pending orders every interval until ctx is
// done.
func StartAutoResubmit(ctx context.Context, client *http.Client, baseURL string, ls *LocalStorage, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := ResubmitPending(client, baseURL, ls); err != nil {
					fmt.Println("resubmit error:", err)
				}
			}
		}
	}()
}

// ResubmitPending sends every queued order and drops the ones the server
// accepted. Orders the server rejects are parked and the next one is tried;
// a network or server error stops the pass. It returns how many were sent.
func ResubmitPending(client *http.Client, baseURL string, ls *LocalStorage) (int, error) {
	sent, parked := 0, 0
	var sendErr error
	for _, o := range ls.PendingOrders() {
		_, err := SubmitOrder(client, baseURL, o)
		if IsRejected(err) {
			fmt.Printf("order %s rejected, not retrying: %v\n", o.Number, err)
			ls.Park(o.Number)
			parked++
			continue
		}
		if err != nil {
			sendErr = err
			break
		}
		ls.Dequeue(o.Number)
		sent++
	}
	if sent == 0 && parked == 0 {
		return 0, sendErr
	}
	if err := ls.Save(); err != nil {
		return sent, errors.Join(sendErr, err)
	}
	return sent, sendErr
}

// ErrQueued reports that an order was kept locally for a later retry.
var ErrQueued = errors.New("order queued for retry")

// Checkout submits the cart as an order for customer and empties the cart.
// When the server cannot be reached the order is queued for
// StartAutoResubmit under a local number and the returned error wraps
// ErrQueued. An order the server rejects is neither queued nor removed from
// the cart.
func Checkout(client *http.Client, baseURL string, ls *LocalStorage, customer models.Customer, now time.Time) (string, error) {
	order := BuildOrder(ls.Items(), customer)
	if len(order.Items) == 0 {
		return "", errors.New("cart is empty")
	}

	number, submitErr := SubmitOrder(client, baseURL, order)
	if IsRejected(submitErr) {
		return "", submitErr
	}
	if submitErr != nil {
		order.Number = "FG-" + strconv.FormatInt(now.UnixMilli(), 10)
		ls.Queue(order)
		number = order.Number
	}
	ls.Clear()
	if err := ls.Save(); err != nil {
		return number, err
	}
	if submitErr != nil {
		return number, fmt.Errorf("%w: %v", ErrQueued, submitErr)
	}
	return number, nil
}
