package main

import "cryptchat/cmd"

func main() {
	cmd.Execute()
}
