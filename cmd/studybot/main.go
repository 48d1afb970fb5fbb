package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

// @title StudyBot API
// @version 1.0.0
// @description Study event scheduling and RSVP service backing the chat bot
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	app := &cli.App{
		Name:  "studybot",
		Usage: "Study event scheduling and RSVP service.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("studybot: %v", err)
	}
}
