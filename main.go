package main

import (
	"devspace-operator/cmd"
	"devspace-operator/shutdown"
)

func main() {
	go shutdown.Listen()
	cmd.Execute()
}
