package main

import "github.com/stackvista/index-backup-cli/cmd"

func main() {
	cmd.Execute()
}
