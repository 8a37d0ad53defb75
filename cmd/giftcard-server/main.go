package main

import (
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/app"
	giftcard_app "github.com/code-payments/gift-protocol/pkg/giftcard/app"
)

func main() {
	if err := app.Run(giftcard_app.New()); err != nil {
		logrus.WithError(err).Fatal("error running gift card service")
	}
}
