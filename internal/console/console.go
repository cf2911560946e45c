package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"GreenConnect/internal/model"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// ActivityFunc receives a genuine input event.
type ActivityFunc func(kind model.ActivityKind)

// Console reads commands line by line and writes replies.
type Console struct {
	In       io.Reader
	Out      io.Writer
	Activity ActivityFunc
}

// Run reads until ctx is cancelled or In is exhausted. Every line counts as
// key input before it is dispatched to handler.
func (c *Console) Run(ctx context.Context, handler CommandHandler) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		// Blocks in Read until input arrives; exits with the process if
		// ctx is cancelled first.
		sc := bufio.NewScanner(c.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] console stopped")
			return nil
		case err := <-errs:
			if err != nil {
				return fmt.Errorf("read console: %w", err)
			}
			return nil
		case line := <-lines:
			if c.Activity != nil {
				c.Activity(model.ActivityKey)
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if reply := handler(text); reply != "" {
				if _, err := fmt.Fprintln(c.Out, reply); err != nil {
					log.Printf("[ERROR] write reply: %v", err)
				}
			}
		}
	}
}
