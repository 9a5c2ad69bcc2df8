package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BartekS5/marketsync/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewCopyProdToDevCmd(cli.DefaultApp()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
