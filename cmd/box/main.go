// Command box is the project manager. It runs inside a project directory
// and resolves commands from the project's .box/commands first.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/app"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/cli"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := app.Run(ctx, app.Options{
		Mode:  userdata.ModeProject,
		Args:  os.Args[1:],
		Build: cli.BuildInfo{Version: version, Commit: commit, Date: date},
	})
	stop()
	os.Exit(code)
}
