package main

import "github.com/venuecore/ticketd/internal/cli"

func main() {
	cli.Execute()
}
