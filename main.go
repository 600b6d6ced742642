package main

import "github.com/getlantern/kaleidoscope/cmd"

func main() {
	cmd.Execute()
}
