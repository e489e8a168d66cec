package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainBaseMainnet     Chain = "eip155:8453"
	ChainBaseSepolia     Chain = "eip155:84532"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia ||
		chain == ChainBaseMainnet ||
		chain == ChainBaseSepolia
}

// EventType identifies the kind of on-chain event carried by an Event envelope
type EventType string

const (
	EventTypeFactoryAdded   EventType = "factory_added"
	EventTypeFactoryRemoved EventType = "factory_removed"
	EventTypeTokenAdded     EventType = "token_added"
	EventTypeTokenRemoved   EventType = "token_removed"
	EventTypePoolAdded      EventType = "pool_added"
	EventTypePoolRemoved    EventType = "pool_removed"
	EventTypeAccountCreated EventType = "account_created"
	EventTypeOwnersUpdated  EventType = "owners_updated"
	EventTypeKYCAttested    EventType = "kyc_attested"
	EventTypeKYCRevoked     EventType = "kyc_revoked"
	EventTypeRoleGranted    EventType = "role_granted"
	EventTypeRoleRevoked    EventType = "role_revoked"
	EventTypeTransfer       EventType = "transfer"       // asset token ERC20 transfer
	EventTypeShareTransfer  EventType = "share_transfer" // pool share token transfer
	EventTypeFundsTaken     EventType = "funds_taken"
	EventTypeRepaid         EventType = "repaid"
	EventTypeRefunded       EventType = "refunded"
	EventTypeAnswerUpdated  EventType = "answer_updated" // price feed round update
)

// WatchKind classifies a dynamically registered listener address
type WatchKind string

const (
	WatchKindFactory   WatchKind = "factory"
	WatchKindAccount   WatchKind = "account"
	WatchKindPool      WatchKind = "pool"
	WatchKindToken     WatchKind = "token"
	WatchKindPriceFeed WatchKind = "price_feed"
)

// TransactionTag is the semantic classification of a recorded token transfer
type TransactionTag string

const (
	TagWithdraw  TransactionTag = "WITHDRAW"
	TagDeposit   TransactionTag = "DEPOSIT"
	TagInvest    TransactionTag = "INVEST"
	TagRepay     TransactionTag = "REPAY"
	TagBorrow    TransactionTag = "BORROW"
	TagRepayment TransactionTag = "REPAYMENT"
)

// Event is a normalized on-chain event.
// This is the standard format published to NATS and consumed by the projector.
// Payload fields are populated depending on Type; unused fields stay zero.
type Event struct {
	Chain       Chain     `json:"chain"`
	Type        EventType `json:"type"`
	Address     string    `json:"address"` // emitting contract, lowercase hex
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	TxIndex     uint64    `json:"tx_index"`
	LogIndex    uint64    `json:"log_index"`
	Timestamp   int64     `json:"timestamp"` // block timestamp, unix seconds

	// Batched registry payloads (token/pool adds and removes)
	Addresses  []string `json:"addresses,omitempty"`
	PriceFeeds []string `json:"price_feeds,omitempty"`

	// Account lifecycle payloads
	Account       string   `json:"account,omitempty"`
	Owners        []string `json:"owners,omitempty"`
	AddedOwners   []string `json:"added_owners,omitempty"`
	RemovedOwners []string `json:"removed_owners,omitempty"`

	// KYC payloads
	KYCID          string `json:"kyc_id,omitempty"`
	KYCLevel       uint8  `json:"kyc_level,omitempty"`
	AttestationUID string `json:"attestation_uid,omitempty"`

	// Role payloads
	Role string `json:"role,omitempty"`

	// Transfer / pool lifecycle payloads
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Investor string `json:"investor,omitempty"`
	Amount   string `json:"amount,omitempty"` // decimal string, also carries the price for answer_updated
}

// AmountBig parses the Amount payload into a big integer.
// An empty or malformed amount parses as zero so that a bad upstream
// payload degrades instead of halting the pipeline.
func (e *Event) AmountBig() *big.Int {
	return ParseAmount(e.Amount)
}

// OrderKey returns the canonical ordering key (block, txIndex, logIndex)
func (e *Event) OrderKey() [3]uint64 {
	return [3]uint64{e.BlockNumber, e.TxIndex, e.LogIndex}
}

// Valid performs minimal sanity checks on the envelope
func (e *Event) Valid() bool {
	if !IsValidChain(e.Chain) || e.Type == "" || e.TxHash == "" {
		return false
	}
	return e.Address == "" || common.IsHexAddress(e.Address)
}

// Subject returns the NATS subject this event is published under
func (e *Event) Subject() string {
	return fmt.Sprintf("events.%s.%s", strings.ReplaceAll(string(e.Chain), ":", "_"), e.Type)
}

// ParseAmount parses a decimal string into a big integer, defaulting to zero
func ParseAmount(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// NormalizeAddress lowercases a hex address so ids compare byte-for-byte
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// IsZeroAddress reports whether the address is the zero address
func IsZeroAddress(address string) bool {
	return NormalizeAddress(address) == ZeroAddress
}

// CompositeID builds a composite entity id from two keys
func CompositeID(a, b string) string {
	return a + "-" + b
}
