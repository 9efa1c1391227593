package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
