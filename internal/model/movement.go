package model

import "encoding/json"

// MovementKind names a token-ledger action requested by the settlement layer.
type MovementKind string

const (
	MovementDebit  MovementKind = "debit"
	MovementCredit MovementKind = "credit"
	MovementMint   MovementKind = "mint"
	MovementBurn   MovementKind = "burn"
)

// Movement is one balance change handed to the token ledger after a
// valuation has been applied to a pool.
type Movement struct {
	Pool       string       `json:"pool"`
	Op         string       `json:"op"`
	Seq        uint64       `json:"seq"`
	Account    string       `json:"account"`
	Token      string       `json:"token"`
	Kind       MovementKind `json:"kind"`
	Amount     uint64       `json:"amount"`
	RecordedAt string       `json:"recorded_at"`
}

// MarshalJSON ensures Movement is encoded with stable field names.
func (m Movement) MarshalJSON() ([]byte, error) {
	type Alias Movement
	return json.Marshal(Alias(m))
}

// UnmarshalJSON decodes a Movement from JSON.
func (m *Movement) UnmarshalJSON(data []byte) error {
	type Alias Movement
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Movement(a)
	return nil
}
