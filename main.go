package main

import "github.com/b0bbywan/go-odio-players/cmd"

func main() {
	cmd.Execute()
}
