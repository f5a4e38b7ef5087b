package main

import (
	"math/rand"
	"time"

	"github.com/luma/palrcon/cmd"
)

func main() {
	// Request ids are drawn from math/rand.
	rand.Seed(time.Now().UnixNano())

	cmd.Execute()
}
