package core

import "io"

// NoOpUI is a no-operation implementation of UI. Prompts behave as if the
// operator is absent: Confirm returns the default, Secret fails.
type NoOpUI struct{}

func (n *NoOpUI) Section(title string)                      {}
func (n *NoOpUI) Title(title string)                        {}
func (n *NoOpUI) Success(msg string)                        {}
func (n *NoOpUI) Info(msg string)                           {}
func (n *NoOpUI) Debug(msg string)                          {}
func (n *NoOpUI) Warning(msg string)                        {}
func (n *NoOpUI) Error(msg string)                          {}
func (n *NoOpUI) Printf(format string, args ...interface{}) {}
func (n *NoOpUI) Println(args ...interface{})               {}
func (n *NoOpUI) Table(rows [][]string)                     {}
func (n *NoOpUI) Confirm(q string, def bool) (bool, error)  { return def, nil }
func (n *NoOpUI) Secret(prompt string) (string, error)      { return "", ErrNonInteractive }
func (n *NoOpUI) WithWriter(w io.Writer) UI                 { return n }
