package ledger

// Event kinds published after a committed ledger write.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventMemberUpdated      = "member.updated"
	EventConfigUpdated      = "config.updated"
)
