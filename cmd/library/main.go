package main

import "github.com/aqasim81/library-catalog/internal/cli"

func main() {
	cli.Execute()
}
