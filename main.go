package main

import "github.com/frahmantamala/marketplace/cmd"

func main() {
	cmd.Execute()
}
