package main

import "github.com/frahmantamala/docflow/cmd"

func main() {
	cmd.Execute()
}
