package main

import (
	"log"
	"os"

	"github.com/Javert5555/gitlab-monitor-sub000/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
