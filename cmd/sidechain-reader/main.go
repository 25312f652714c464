package main

import "github.com/zfogg/sidechain/reader/internal/cmd"

func main() {
	cmd.Execute()
}
