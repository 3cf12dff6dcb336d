package main

import (
	"github.com/joho/godotenv"

	"repolens/cmd"
)

func main() {
	// A .env in the working directory can set REPOLENS_* variables.
	_ = godotenv.Load()
	cmd.Execute()
}
