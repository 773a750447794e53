package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console prints alerts to a terminal.
type Console struct {
	out   io.Writer
	alert *color.Color
	quiet *color.Color
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}

	return &Console{
		out:   out,
		alert: color.New(color.FgGreen, color.Bold),
		quiet: color.New(color.FgYellow),
	}
}

func (c *Console) Name() string {
	return "console"
}

func (c *Console) Notify(_ context.Context, text string) error {
	if _, err := fmt.Fprintf(c.out, "%s %s\n", c.alert.Sprint("ALERT:"), text); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

func (c *Console) NoDeals() {
	_, _ = c.quiet.Fprintln(c.out, "No deals under threshold this run.")
}
