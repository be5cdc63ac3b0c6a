package main

import "github.com/jfmyers9/spotlite/cmd"

func main() {
	cmd.Execute()
}
