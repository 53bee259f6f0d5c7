package main

import (
	"github.com/TRISss33/VIDEO-CONFERENCE/internal/cli"
	"github.com/TRISss33/VIDEO-CONFERENCE/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
