package main

import "github.com/nfrund/amruno/cmd/amruno/cmd"

func main() {
	cmd.Execute()
}
