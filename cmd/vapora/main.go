package main

import "github.com/DrSkyle/vapora/cmd/vapora/commands"

func main() {
	commands.Execute()
}
