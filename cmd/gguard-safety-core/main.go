package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/groundguard-io/groundguard/cmd/gguard-safety-core/app"
)

func main() {
	if err := app.NewApp().Run(); err != nil {
		os.Exit(1)
	}
}
