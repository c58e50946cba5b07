package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gosuda/portal-chat/internal/controller"
)

const renameCommand = "/nick"

// lineInput adapts one typed line to controller.Input.
type lineInput struct{ value string }

func (l *lineInput) Value() string     { return l.value }
func (l *lineInput) SetValue(s string) { l.value = s }

// runPlain reads commands line by line: "/nick <name>" renames, anything
// else is sent as a message. Lines have no length limit. It returns when
// input ends, ctx is done or the connection drops; a failed read is
// returned as an error.
func runPlain(ctx context.Context, ctrl *controller.Controller, in io.Reader, disconnected <-chan error) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				select {
				case lines <- strings.TrimRight(line, "\r\n"):
				case <-ctx.Done():
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				readErr <- fmt.Errorf("read input: %w", err)
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-disconnected:
			return err
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			handleLine(ctrl, line)
		}
	}
}

func handleLine(ctrl *controller.Controller, line string) {
	trimmed := strings.TrimSpace(line)
	if name, ok := strings.CutPrefix(trimmed, renameCommand); ok && (name == "" || name[0] == ' ' || name[0] == '\t') {
		ctrl.Rename(&lineInput{value: name})
		return
	}
	ctrl.Send(&lineInput{value: line})
}
