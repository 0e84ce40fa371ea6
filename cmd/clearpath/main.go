package main

import "github.com/clearpath/clearpath/cmd/clearpath/cmd"

func main() {
	cmd.Execute()
}
