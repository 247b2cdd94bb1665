package main

import "github.com/yungbote/flowchart-backend/internal/cli"

func main() {
	cli.Execute()
}
