package main

import "github.com/qobs-build/bd/cmd"

func main() {
	cmd.Execute()
}
