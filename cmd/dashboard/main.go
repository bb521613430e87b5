package main

import (
	"fmt"
	"os"

	"github.com/cupidlabs/cupid-backend/internal/app"
)

func main() {
	dashApp, err := app.NewDashboardApp()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer dashApp.Close()

	if err := dashApp.Start(); err != nil {
		dashApp.Log.Error("Failed to start sync scheduler", "error", err)
		os.Exit(1)
	}
	if err := dashApp.Run(); err != nil {
		dashApp.Log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
