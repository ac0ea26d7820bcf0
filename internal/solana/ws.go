package solana

// LogsFilter defines the subscription filter for logsSubscribe.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification is one logsNotification payload.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// Failed reports whether the transaction failed.
func (n LogNotification) Failed() bool {
	return n.Err != nil
}
