package main

import "bookstitch/internal/cli"

func main() {
	cli.Execute()
}
