// Package ui holds the surfaces the broker hands user-facing work to. The
// broker never renders anything itself: it presents previews and fires
// notifications, and the decisions come back through the broker API.
package ui

import (
	"context"

	"edgewallet.io/wallet-broker/internal/wallet"
	"edgewallet.io/wallet-broker/pkg/log"
)

// RequestPreview is everything the decision surface needs to show one inbound
// signing request.
type RequestPreview struct {
	Topic     string         `json:"topic"`
	RequestID int64          `json:"request_id"`
	WalletID  string         `json:"wallet_id"`
	DAppName  string         `json:"dapp_name"`
	DAppURL   string         `json:"dapp_url"`
	Icon      string         `json:"icon"`
	Intent    *wallet.Intent `json:"intent"`
}

// Presenter shows an inbound request to the user. The eventual decision
// arrives separately through ApproveRequest or RejectRequest.
type Presenter interface {
	PresentRequest(ctx context.Context, preview *RequestPreview)
}

// Notifier fires a toast-style confirmation. Best effort, never blocks.
type Notifier interface {
	Notify(title, message string)
}

// LogPresenter logs the preview. Stands in for the modal surface when the
// broker runs headless.
type LogPresenter struct{}

func (LogPresenter) PresentRequest(ctx context.Context, preview *RequestPreview) {
	log.Infof("wallet connect - pending request %v on topic %v from %v: %v %v",
		preview.RequestID, preview.Topic, preview.DAppName, preview.Intent.Method, preview.Intent.To)
}

// LogNotifier logs the notification.
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	log.Infof("%v: %v", title, message)
}
