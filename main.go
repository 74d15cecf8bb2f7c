package main

import "github.com/BioHazard786/pastedrop/cmd"

func main() {
	cmd.Execute()
}
