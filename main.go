package main

import (
	"melodygram/cmd"
)

func main() {
	cmd.Execute()
}
