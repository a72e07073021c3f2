package main

import "errors"

// errUsage signals that argument parsing failed after the subcommand
// already printed its own usage text.
var errUsage = errors.New("invalid arguments")
