package main

import "github.com/avaloki108/Slitheryn/cmd"

func main() {
	cmd.Execute()
}
