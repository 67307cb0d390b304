// Command realmweave weaves Go model packages onto row storage.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/realmweave/internal/cli"
	"github.com/leapstack-labs/realmweave/internal/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	os.Exit(commands.ExitCode(err))
}
