package main

import "cinelist/cmd/cli/command"

func main() {
	command.Execute()
}
