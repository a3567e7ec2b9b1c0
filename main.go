package main

import "github.com/KaramelBytes/segmenta-cli/cmd"

func main() {
	cmd.Execute()
}
