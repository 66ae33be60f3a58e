// Package main is the splatkit CLI command itself.
package main

import (
	"log"
	"os"

	"github.com/splatkit/splatkit/cli"
)

func main() {
	if err := cli.NewApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
