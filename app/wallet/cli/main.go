package main

import "github.com/babymu5k/Zedovium/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
