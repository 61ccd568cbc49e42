package main

import "github.com/samg3003/wfs-fintech-hackathon/internal/cli"

func main() {
	cli.Execute()
}
