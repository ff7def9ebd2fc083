package main

import (
	_ "github.com/keshon/fastiscord/pkg/builtin"
	"github.com/keshon/fastiscord/pkg/cli"
)

func main() {
	cli.Execute()
}
