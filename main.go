package main

import "github.com/worldcoin/world-id-example-airdrop/cmd"

func main() {
	cmd.Execute()
}
