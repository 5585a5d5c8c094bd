// Package main is the entry point for the askdb gateway.
package main

import "github.com/askdb/askdb/cmd"

func main() {
	cmd.Execute()
}
