package main

import (
	"db-vault/cmd"

	_ "github.com/lib/pq"
)

func main() {
	cmd.Execute()
}
