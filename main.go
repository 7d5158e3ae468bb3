package main

import (
	"github.com/TheCodeDaniel/voiceSync/cmd"
	"github.com/TheCodeDaniel/voiceSync/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
