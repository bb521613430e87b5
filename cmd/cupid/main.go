package main

import (
	"fmt"
	"os"

	"github.com/cupidlabs/cupid-backend/internal/app"
)

func main() {
	gameApp, err := app.NewGameApp()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer gameApp.Close()

	if err := gameApp.Run(); err != nil {
		gameApp.Log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
