package bcao

// TransactionCreationInfo is what a ledger reports for a committed operation.
type TransactionCreationInfo struct {
	TransactionID string `json:"transactionId"`     // Transaction ID
	BlockID       string `json:"blockId,omitempty"` // Block ID
}
