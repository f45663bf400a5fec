package main

import "github.com/dbsmedya/cdr3net/cmd/cdr3net/cmd"

func main() {
	cmd.Execute()
}
