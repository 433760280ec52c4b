package main

import "github.com/replicatedhq/patchsmith/cmd"

func main() {
	cmd.Execute()
}
