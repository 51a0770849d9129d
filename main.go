package main

import "github.com/furisto/promptbuilder/frontend/cli/cmd"

func main() {
	cmd.Execute()
}
