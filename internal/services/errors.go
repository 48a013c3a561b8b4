package services

import (
	"github.com/yungbote/papaya-ledger/internal/data/aggregates"
)

// mapStorage gives read-path failures the same codes as ledger writes.
func mapStorage(op string, err error) error {
	return aggregates.MapError(op, err)
}
