package main

import (
	"github.com/appetiteclub/frontdesk/cmd/bookctl/internal/commands"
)

func main() {
	commands.Execute()
}
