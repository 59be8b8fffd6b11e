// Package main is the entry point for the placeset CLI.
package main

func main() {
	Execute()
}
