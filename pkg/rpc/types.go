// Package rpc serves a Solana-compatible JSON-RPC 2.0 API over the ledger,
// plus getBulldozerAccounts for decoded schema records.
package rpc

import (
	"encoding/json"

	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
)

// JSON-RPC 2.0 constants.
const (
	JSONRPCVersion = "2.0"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Context provides slot context for RPC responses.
type Context struct {
	Slot       uint64 `json:"slot"`
	APIVersion string `json:"apiVersion,omitempty"`
}

// ResponseWithContext wraps a value with context.
type ResponseWithContext struct {
	Context Context     `json:"context"`
	Value   interface{} `json:"value"`
}

// Commitment levels for RPC requests. Every journaled slot is final, so
// the level only shapes the reported confirmation status.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Encoding types for account and transaction data.
type Encoding string

const (
	EncodingBase58     Encoding = "base58"
	EncodingBase64     Encoding = "base64"
	EncodingBase64Zstd Encoding = "base64+zstd"
	EncodingJSONParsed Encoding = "jsonParsed"
)

// DataSlice specifies a portion of account data to return.
type DataSlice struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

// AccountInfoConfig configures getAccountInfo and getMultipleAccounts.
type AccountInfoConfig struct {
	Encoding       Encoding   `json:"encoding,omitempty"`
	Commitment     Commitment `json:"commitment,omitempty"`
	DataSlice      *DataSlice `json:"dataSlice,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

// CommitmentConfig configures methods that only take a commitment.
type CommitmentConfig struct {
	Commitment     Commitment `json:"commitment,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

// ProgramAccountsConfig configures getProgramAccounts requests.
type ProgramAccountsConfig struct {
	Encoding       Encoding               `json:"encoding,omitempty"`
	Commitment     Commitment             `json:"commitment,omitempty"`
	DataSlice      *DataSlice             `json:"dataSlice,omitempty"`
	Filters        []ProgramAccountFilter `json:"filters,omitempty"`
	WithContext    bool                   `json:"withContext,omitempty"`
	MinContextSlot *uint64                `json:"minContextSlot,omitempty"`
}

// ProgramAccountFilter filters program accounts.
type ProgramAccountFilter struct {
	Memcmp   *MemcmpFilter `json:"memcmp,omitempty"`
	DataSize *uint64       `json:"dataSize,omitempty"`
}

// MemcmpFilter matches account data at an offset.
type MemcmpFilter struct {
	Offset   uint64   `json:"offset"`
	Bytes    string   `json:"bytes"`
	Encoding Encoding `json:"encoding,omitempty"`
}

// BulldozerAccountsFilter selects decoded schema records. Type is the
// record name ("Workspace", "Collaborator", ...); the remaining fields are
// base58 addresses and may be omitted.
type BulldozerAccountsFilter struct {
	Type        string `json:"type"`
	Authority   string `json:"authority,omitempty"`
	Workspace   string `json:"workspace,omitempty"`
	Application string `json:"application,omitempty"`
	Collection  string `json:"collection,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

// SendTransactionConfig configures sendTransaction requests.
type SendTransactionConfig struct {
	Encoding            Encoding   `json:"encoding,omitempty"`
	SkipPreflight       bool       `json:"skipPreflight,omitempty"`
	PreflightCommitment Commitment `json:"preflightCommitment,omitempty"`
	MaxRetries          *uint64    `json:"maxRetries,omitempty"`
}

// TransactionConfig configures getTransaction requests.
type TransactionConfig struct {
	Encoding   Encoding   `json:"encoding,omitempty"`
	Commitment Commitment `json:"commitment,omitempty"`
}

// SignatureStatusConfig configures getSignatureStatuses requests.
type SignatureStatusConfig struct {
	SearchTransactionHistory bool `json:"searchTransactionHistory,omitempty"`
}

// SignaturesForAddressConfig configures getSignaturesForAddress requests.
type SignaturesForAddressConfig struct {
	Limit          int        `json:"limit,omitempty"`
	Until          *uint64    `json:"untilSlot,omitempty"`
	Commitment     Commitment `json:"commitment,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

// AccountInfo represents account information returned by RPC.
type AccountInfo struct {
	Data       interface{} `json:"data"` // [encoded, encoding] or a parsed record
	Executable bool        `json:"executable"`
	Lamports   uint64      `json:"lamports"`
	Owner      string      `json:"owner"`
	RentEpoch  uint64      `json:"rentEpoch"`
	Space      uint64      `json:"space"`
}

// KeyedAccountInfo wraps AccountInfo with its pubkey.
type KeyedAccountInfo struct {
	Pubkey  string       `json:"pubkey"`
	Account *AccountInfo `json:"account"`
}

// ParsedAccountData is the jsonParsed form of a schema record.
type ParsedAccountData struct {
	Program string      `json:"program"`
	Parsed  ParsedValue `json:"parsed"`
	Space   uint64      `json:"space"`
}

// ParsedValue names the decoded record type.
type ParsedValue struct {
	Type string      `json:"type"`
	Info interface{} `json:"info"`
}

// TransactionMeta contains transaction execution metadata.
type TransactionMeta struct {
	Err                  *blockstore.TransactionError `json:"err"`
	Fee                  uint64                       `json:"fee"`
	PreBalances          []uint64                     `json:"preBalances"`
	PostBalances         []uint64                     `json:"postBalances"`
	LogMessages          []string                     `json:"logMessages"`
	ComputeUnitsConsumed uint64                       `json:"computeUnitsConsumed"`
}

// TransactionResponse represents a transaction returned by RPC.
type TransactionResponse struct {
	Slot        uint64           `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Transaction []string         `json:"transaction"` // [encoded, encoding]
	Meta        *TransactionMeta `json:"meta"`
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64                       `json:"slot"`
	Confirmations      *uint64                      `json:"confirmations"`
	Err                *blockstore.TransactionError `json:"err"`
	ConfirmationStatus string                       `json:"confirmationStatus"`
}

// SignatureInfo is one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature          string                       `json:"signature"`
	Slot               uint64                       `json:"slot"`
	Err                *blockstore.TransactionError `json:"err"`
	BlockTime          *int64                       `json:"blockTime"`
	ConfirmationStatus string                       `json:"confirmationStatus"`
}

// LatestBlockhash is the value of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// VersionInfo is the result of getVersion.
type VersionInfo struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}

// Version of the node reported by getVersion. Overridden at link time.
var Version = "0.1.0"
