package main

import (
	"bvpscraper/cmd/bvp/cmd"
	"bvpscraper/lib/serviceutil"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		serviceutil.Fatal("bvp failed", err)
	}
}
