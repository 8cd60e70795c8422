// Command ljgrawlr crawls a LiveJournal journal into one file per entry.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/HRemonen/ljgrawlr/cmd/ljgrawlr/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
