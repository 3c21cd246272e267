package main

import "github.com/encodeous/beacon/cmd"

func main() {
	cmd.Execute()
}
