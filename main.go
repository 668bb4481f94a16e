package main

import (
	"log"

	"github.com/MCord/gitui/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("gitui: %v", err)
	}
}
