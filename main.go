package main

import (
	"github.com/quill-cli/quill/frontend/cli/cmd"
)

func main() {
	cmd.Execute()
}
