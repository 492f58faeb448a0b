package main

import "github.com/skalski/evermult/cmd"

func main() {
	cmd.Execute()
}
