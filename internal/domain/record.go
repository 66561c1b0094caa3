package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RecordKind string

const (
	RecordKindDeposit     RecordKind = "deposit"
	RecordKindWithdrawal  RecordKind = "withdrawal"
	RecordKindTransferIn  RecordKind = "transfer_in"
	RecordKindTransferOut RecordKind = "transfer_out"
	RecordKindAdminAdjust RecordKind = "admin_adjust"
)

// TransactionRecord is one line of the append-only audit trail. Amount is
// signed: positive for credits, negative for debits. Exactly one record is
// written in the same transaction as every balance mutation.
type TransactionRecord struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Kind       RecordKind
	Amount     int64
	Annotation json.RawMessage
	CreatedAt  time.Time
}
