package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/tichealth/tic-app/tic/ticcli"
)

func main() {
	if err := ticcli.GetApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
