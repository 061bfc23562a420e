package main

import (
	"github.com/joho/godotenv"

	"github.com/NikolozR/suliko-client/internal/cli"
)

func main() {
	_ = godotenv.Load()

	cli.Execute()
}
