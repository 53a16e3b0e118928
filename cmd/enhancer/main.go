package main

import (
	"enhancer/cmd/handlers"
	"enhancer/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
