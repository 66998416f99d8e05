package main

// Default limits for CLI commands.
const (
	DefaultAuditLimit = 50
)

// envToken supplies the reviewer's OAuth bearer token to review and whoami.
const envToken = "SUGGESTOR_TOKEN"

// Valid review actions, as accepted on the command line.
var validActions = []string{"approve", "reject"}
