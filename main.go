package main

import "github.com/terndb/tern-go/cmd"

func main() {
	cmd.Execute()
}
