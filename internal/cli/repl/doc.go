// Package repl provides the interactive mode for jetkv-cli.
//
// Lines are split into arguments (double and single quotes group words) and
// handed to an Executor. Local commands are help, history, exit and quit.
// A line ending in a tab prints completions for the text before it.
package repl
