package main

import (
	"context"
	"time"

	"edgewallet.io/wallet-broker/internal/cache"
	"edgewallet.io/wallet-broker/internal/config"
	"edgewallet.io/wallet-broker/internal/http"
	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/internal/starter"
	"edgewallet.io/wallet-broker/internal/ui"
	"edgewallet.io/wallet-broker/internal/wallet"
	"edgewallet.io/wallet-broker/internal/walletconnect"
	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
)

func main() {
	log.Infof("Starting wallet broker")
	startApp()
}

func startApp() {
	defer func() {
		if i := recover(); i != nil {
			log.Fatal(errors.ErrorfAndReport("%v", i))
		}
	}()
	config.Read()
	log.SetLevel(config.Global.LogLevel)
	if err := errors.NewSentryReporter(config.Global.SentryDSN); err != nil {
		log.Error(err)
	}
	errors.NewLarkReporter(config.Global.LarkAlarmWebhook, time.Minute)

	cache.Init(&config.Global.RedisCredential)
	defer cache.Close()

	ctx := context.Background()
	dialer := &relay.WebsocketDialer{
		URL:       config.Global.Relay.URL,
		ProjectID: config.Global.Relay.ProjectID,
		Metadata: relay.Metadata{
			Name:        config.Global.AppMetadata.Name,
			Description: config.Global.AppMetadata.Description,
			URL:         config.Global.AppMetadata.URL,
			Icons:       config.Global.AppMetadata.Icons,
		},
	}
	broker := walletconnect.NewService(dialer, wallet.NewRegistry(), ui.LogPresenter{}, ui.LogNotifier{})
	starter.Start(ctx, broker)

	http.NewServer(broker, config.Global.HTTPListen).Run()
}
