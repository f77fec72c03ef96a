package rpc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
	"github.com/fortiblox/X1-Bulldozer/pkg/runtime"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/bulldozer"
)

const (
	maxMultipleAccounts    = 100
	maxSignatureStatuses   = 256
	maxSignaturesLimit     = 1000
	defaultSignaturesLimit = 1000
)

// parseArgs splits positional params and checks the required count.
func parseArgs(params json.RawMessage, required int, what string) ([]json.RawMessage, *RPCError) {
	var args []json.RawMessage
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, ErrInvalidParams
		}
	}
	if len(args) < required {
		return nil, InvalidParamsErrorf("missing %s parameter", what)
	}
	return args, nil
}

// parseConfig decodes the optional config object at args[i].
func parseConfig(args []json.RawMessage, i int, config interface{}) *RPCError {
	if len(args) <= i || string(args[i]) == "null" {
		return nil
	}
	if err := json.Unmarshal(args[i], config); err != nil {
		return InvalidParamsError("invalid config")
	}
	return nil
}

func parsePubkey(raw json.RawMessage, what string) (types.Pubkey, *RPCError) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return types.Pubkey{}, InvalidParamsErrorf("invalid %s", what)
	}
	pubkey, err := types.PubkeyFromBase58(s)
	if err != nil {
		return types.Pubkey{}, InvalidParamsErrorf("invalid %s format", what)
	}
	return pubkey, nil
}

func parseSignature(s string) (types.Signature, *RPCError) {
	sig, err := types.SignatureFromBase58(s)
	if err != nil {
		return types.Signature{}, InvalidParamsError("invalid signature format")
	}
	return sig, nil
}

// contextSlot returns the current slot, or an error when the caller asked
// for a slot the ledger has not reached.
func (s *Server) contextSlot(minContextSlot *uint64) (uint64, *RPCError) {
	slot := s.journal.GetLatestSlot()
	if minContextSlot != nil && *minContextSlot > slot {
		return 0, MinContextSlotError(*minContextSlot, slot)
	}
	return slot, nil
}

// getAccount loads an account, treating a missing one as nil.
func (s *Server) getAccount(pubkey types.Pubkey) (*accounts.Account, *RPCError) {
	account, err := s.accountsDB.GetAccount(pubkey)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, InternalServerErrorf("failed to get account: %v", err)
	}
	return account, nil
}

// Account Methods

// getAccountInfo retrieves account information.
func (s *Server) getAccountInfo(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "pubkey")
	if rpcErr != nil {
		return nil, rpcErr
	}
	pubkey, rpcErr := parsePubkey(args[0], "pubkey")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var config AccountInfoConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}
	slot, rpcErr := s.contextSlot(config.MinContextSlot)
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, rpcErr := s.getAccount(pubkey)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if account == nil {
		return ResponseWithContext{Context: Context{Slot: slot}, Value: nil}, nil
	}

	info, err := encodeAccount(account, config.Encoding, config.DataSlice)
	if err != nil {
		return nil, InternalServerErrorf("failed to encode account: %v", err)
	}
	return ResponseWithContext{Context: Context{Slot: slot}, Value: info}, nil
}

// getBalance retrieves account balance.
func (s *Server) getBalance(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "pubkey")
	if rpcErr != nil {
		return nil, rpcErr
	}
	pubkey, rpcErr := parsePubkey(args[0], "pubkey")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var config CommitmentConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}
	slot, rpcErr := s.contextSlot(config.MinContextSlot)
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, rpcErr := s.getAccount(pubkey)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var lamports uint64
	if account != nil {
		lamports = account.Lamports
	}
	return ResponseWithContext{Context: Context{Slot: slot}, Value: lamports}, nil
}

// getMultipleAccounts retrieves multiple accounts.
func (s *Server) getMultipleAccounts(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "pubkeys")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var pubkeyStrs []string
	if err := json.Unmarshal(args[0], &pubkeyStrs); err != nil {
		return nil, InvalidParamsError("invalid pubkeys array")
	}
	if len(pubkeyStrs) > maxMultipleAccounts {
		return nil, InvalidParamsErrorf("too many pubkeys (max %d)", maxMultipleAccounts)
	}
	var config AccountInfoConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}
	slot, rpcErr := s.contextSlot(config.MinContextSlot)
	if rpcErr != nil {
		return nil, rpcErr
	}

	infos := make([]*AccountInfo, len(pubkeyStrs))
	for i, str := range pubkeyStrs {
		pubkey, err := types.PubkeyFromBase58(str)
		if err != nil {
			return nil, InvalidParamsErrorf("invalid pubkey at index %d", i)
		}
		account, rpcErr := s.getAccount(pubkey)
		if rpcErr != nil {
			return nil, rpcErr
		}
		if account == nil {
			continue
		}
		if infos[i], err = encodeAccount(account, config.Encoding, config.DataSlice); err != nil {
			return nil, InternalServerErrorf("failed to encode account: %v", err)
		}
	}

	return ResponseWithContext{Context: Context{Slot: slot}, Value: infos}, nil
}

// getProgramAccounts retrieves accounts owned by a program.
func (s *Server) getProgramAccounts(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "program ID")
	if rpcErr != nil {
		return nil, rpcErr
	}
	programID, rpcErr := parsePubkey(args[0], "program ID")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var config ProgramAccountsConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}
	slot, rpcErr := s.contextSlot(config.MinContextSlot)
	if rpcErr != nil {
		return nil, rpcErr
	}

	results := []KeyedAccountInfo{}
	var badFilter error
	err := s.accountsDB.IterateAccounts(func(pubkey types.Pubkey, account *accounts.Account) error {
		if account.Owner != programID {
			return nil
		}
		ok, err := matchesFilters(account.Data, config.Filters)
		if err != nil {
			badFilter = err
			return err
		}
		if !ok {
			return nil
		}
		info, err := encodeAccount(account, config.Encoding, config.DataSlice)
		if err != nil {
			return err
		}
		results = append(results, KeyedAccountInfo{Pubkey: pubkey.String(), Account: info})
		return nil
	})
	if badFilter != nil {
		return nil, InvalidParamsError(badFilter.Error())
	}
	if err != nil {
		return nil, NewRPCError(ScanError, err.Error())
	}

	if config.WithContext {
		return ResponseWithContext{Context: Context{Slot: slot}, Value: results}, nil
	}
	return results, nil
}

// getBulldozerAccounts returns decoded schema records matching a filter.
func (s *Server) getBulldozerAccounts(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "filter")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var raw BulldozerAccountsFilter
	if err := json.Unmarshal(args[0], &raw); err != nil {
		return nil, InvalidParamsError("invalid filter")
	}
	filter, rpcErr := raw.compile()
	if rpcErr != nil {
		return nil, rpcErr
	}

	slot := s.journal.GetLatestSlot()
	matches, err := s.reader.Find(filter)
	if errors.Is(err, bulldozer.ErrUnsupportedFilter) {
		return nil, InvalidParamsError(err.Error())
	}
	if err != nil {
		return nil, NewRPCError(ScanError, err.Error())
	}
	if matches == nil {
		matches = []bulldozer.Match{}
	}
	return ResponseWithContext{Context: Context{Slot: slot}, Value: matches}, nil
}

func (f BulldozerAccountsFilter) compile() (bulldozer.Filter, *RPCError) {
	t, ok := bulldozer.ParseAccountType(f.Type)
	if !ok {
		return bulldozer.Filter{}, InvalidParamsErrorf("unknown record type %q", f.Type)
	}
	filter := bulldozer.Filter{Type: t}

	fields := []struct {
		name  string
		value string
		dst   **types.Pubkey
	}{
		{"authority", f.Authority, &filter.Authority},
		{"workspace", f.Workspace, &filter.Workspace},
		{"application", f.Application, &filter.Application},
		{"collection", f.Collection, &filter.Collection},
		{"instruction", f.Instruction, &filter.Instruction},
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		pubkey, err := types.PubkeyFromBase58(field.value)
		if err != nil {
			return bulldozer.Filter{}, InvalidParamsErrorf("invalid %s format", field.name)
		}
		*field.dst = &pubkey
	}
	return filter, nil
}

// Transaction Methods

// sendTransaction executes a signed wire transaction. Execution is
// synchronous, so a failed transaction is reported immediately unless the
// caller skipped preflight.
func (s *Server) sendTransaction(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}
	args, rpcErr := parseArgs(params, 1, "transaction")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var encoded string
	if err := json.Unmarshal(args[0], &encoded); err != nil {
		return nil, InvalidParamsError("invalid transaction")
	}
	var config SendTransactionConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}

	raw, err := decodeTransaction(encoded, config.Encoding)
	if err != nil {
		return nil, InvalidParamsErrorf("failed to decode transaction: %v", err)
	}
	tx, err := runtime.DeserializeTransaction(raw)
	if err != nil {
		return nil, InvalidParamsErrorf("failed to deserialize transaction: %v", err)
	}

	result, err := s.executor.Execute(ctx, tx)
	switch {
	case errors.Is(err, runtime.ErrSignatureVerification), errors.Is(err, runtime.ErrMissingSigner):
		return nil, NewRPCError(TransactionSignatureVerificationFailure, err.Error())
	case err != nil:
		return nil, PreflightError(err.Error())
	}

	if result.Err != nil && !config.SkipPreflight {
		return nil, TransactionFailedError(result.Err, result.Signature.String(), result.Logs)
	}
	return result.Signature.String(), nil
}

// requestAirdrop funds a wallet from the faucet.
func (s *Server) requestAirdrop(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}
	args, rpcErr := parseArgs(params, 2, "lamports")
	if rpcErr != nil {
		return nil, rpcErr
	}
	pubkey, rpcErr := parsePubkey(args[0], "pubkey")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var lamports uint64
	if err := json.Unmarshal(args[1], &lamports); err != nil {
		return nil, InvalidParamsError("invalid lamports")
	}
	if lamports == 0 || (s.config.MaxAirdropLamports > 0 && lamports > s.config.MaxAirdropLamports) {
		return nil, InvalidParamsErrorf("airdrop must be between 1 and %d lamports", s.config.MaxAirdropLamports)
	}

	result, err := s.executor.Airdrop(ctx, pubkey, lamports)
	if errors.Is(err, runtime.ErrFaucetDisabled) {
		return nil, NewRPCError(InvalidRequest, "airdrops are disabled on this node")
	}
	if err != nil {
		return nil, InternalServerErrorf("airdrop failed: %v", err)
	}
	if result.Err != nil {
		return nil, InternalServerErrorf("airdrop failed: %s", result.Err.Message)
	}
	return result.Signature.String(), nil
}

// getTransaction retrieves a journaled transaction by signature.
func (s *Server) getTransaction(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "signature")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var sigStr string
	if err := json.Unmarshal(args[0], &sigStr); err != nil {
		return nil, InvalidParamsError("invalid signature")
	}
	sig, rpcErr := parseSignature(sigStr)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var config TransactionConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}

	txn, err := s.journal.GetTransaction(sig)
	if errors.Is(err, blockstore.ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, InternalServerErrorf("failed to get transaction: %v", err)
	}

	resp := &TransactionResponse{
		Slot:        txn.Slot,
		Transaction: EncodeTransaction(txn.Raw, config.Encoding),
	}
	if meta, err := s.journal.GetSlotMeta(txn.Slot); err == nil {
		resp.BlockTime = &meta.BlockTime
	}
	if txn.Meta != nil {
		resp.Meta = &TransactionMeta{
			Err:                  txn.Meta.Err,
			PreBalances:          txn.Meta.PreBalances,
			PostBalances:         txn.Meta.PostBalances,
			LogMessages:          txn.Meta.LogMessages,
			ComputeUnitsConsumed: txn.Meta.ComputeUnitsConsumed,
		}
	}
	return resp, nil
}

// getSignatureStatuses returns the status of each signature, nil for
// unknown ones.
func (s *Server) getSignatureStatuses(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "signatures")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var sigStrs []string
	if err := json.Unmarshal(args[0], &sigStrs); err != nil {
		return nil, InvalidParamsError("invalid signatures array")
	}
	if len(sigStrs) > maxSignatureStatuses {
		return nil, InvalidParamsErrorf("too many signatures (max %d)", maxSignatureStatuses)
	}
	var config SignatureStatusConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}

	slot := s.journal.GetLatestSlot()
	statuses := make([]*SignatureStatus, len(sigStrs))
	for i, str := range sigStrs {
		sig, rpcErr := parseSignature(str)
		if rpcErr != nil {
			return nil, rpcErr
		}
		status, err := s.journal.GetTransactionStatus(sig)
		if errors.Is(err, blockstore.ErrTransactionNotFound) {
			continue
		}
		if err != nil {
			return nil, InternalServerErrorf("failed to get status: %v", err)
		}
		statuses[i] = &SignatureStatus{
			Slot:               status.Slot,
			Confirmations:      status.Confirmations,
			Err:                status.Err,
			ConfirmationStatus: status.ConfirmationStatus.String(),
		}
	}

	return ResponseWithContext{Context: Context{Slot: slot}, Value: statuses}, nil
}

// getSignaturesForAddress lists the transactions that touched an address,
// newest first.
func (s *Server) getSignaturesForAddress(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	address, rpcErr := parsePubkey(args[0], "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var config SignaturesForAddressConfig
	if rpcErr := parseConfig(args, 1, &config); rpcErr != nil {
		return nil, rpcErr
	}
	if _, rpcErr := s.contextSlot(config.MinContextSlot); rpcErr != nil {
		return nil, rpcErr
	}

	limit := config.Limit
	if limit <= 0 {
		limit = defaultSignaturesLimit
	}
	if limit > maxSignaturesLimit {
		return nil, InvalidParamsErrorf("limit must be at most %d", maxSignaturesLimit)
	}

	infos, err := s.journal.GetSignaturesForAddress(address, &blockstore.SignatureQueryOptions{
		Limit: limit,
		Until: config.Until,
	})
	if err != nil {
		return nil, InternalServerErrorf("failed to get signatures: %v", err)
	}

	results := make([]SignatureInfo, len(infos))
	for i, info := range infos {
		blockTime := info.BlockTime
		results[i] = SignatureInfo{
			Signature:          info.Signature.String(),
			Slot:               info.Slot,
			Err:                info.Err,
			BlockTime:          &blockTime,
			ConfirmationStatus: blockstore.CommitmentFinalized.String(),
		}
	}
	return results, nil
}

// Cluster Methods

// getSlot returns the latest journaled slot. Each slot holds one block,
// so it doubles as getBlockHeight.
func (s *Server) getSlot(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 0, "")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var config CommitmentConfig
	if rpcErr := parseConfig(args, 0, &config); rpcErr != nil {
		return nil, rpcErr
	}
	return s.contextSlot(config.MinContextSlot)
}

// getHealth returns "ok" while the node accepts transactions.
func (s *Server) getHealth(context.Context, json.RawMessage) (interface{}, *RPCError) {
	if !s.IsHealthy() {
		return nil, ErrNodeUnhealthy
	}
	return "ok", nil
}

// getVersion returns the node version.
func (s *Server) getVersion(context.Context, json.RawMessage) (interface{}, *RPCError) {
	return VersionInfo{SolanaCore: Version}, nil
}

// getFirstAvailableBlock returns the oldest slot the journal still holds.
func (s *Server) getFirstAvailableBlock(context.Context, json.RawMessage) (interface{}, *RPCError) {
	return s.journal.GetOldestSlot(), nil
}

// Info Methods

// getLatestBlockhash returns the blockhash new transactions should use.
func (s *Server) getLatestBlockhash(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 0, "")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var config CommitmentConfig
	if rpcErr := parseConfig(args, 0, &config); rpcErr != nil {
		return nil, rpcErr
	}
	slot, rpcErr := s.contextSlot(config.MinContextSlot)
	if rpcErr != nil {
		return nil, rpcErr
	}

	return ResponseWithContext{
		Context: Context{Slot: slot},
		Value: LatestBlockhash{
			Blockhash:            s.executor.LatestBlockhash().String(),
			LastValidBlockHeight: s.executor.LastValidSlot(),
		},
	}, nil
}

// isBlockhashValid reports whether a blockhash is still accepted.
func (s *Server) isBlockhashValid(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "blockhash")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var str string
	if err := json.Unmarshal(args[0], &str); err != nil {
		return nil, InvalidParamsError("invalid blockhash")
	}
	hash, err := types.HashFromBase58(str)
	if err != nil {
		return nil, InvalidParamsError("invalid blockhash format")
	}

	return ResponseWithContext{
		Context: Context{Slot: s.journal.GetLatestSlot()},
		Value:   s.executor.IsBlockhashValid(hash),
	}, nil
}

// getMinimumBalanceForRentExemption returns the rent-exempt minimum for a
// data length.
func (s *Server) getMinimumBalanceForRentExemption(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params, 1, "data length")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var dataLen uint64
	if err := json.Unmarshal(args[0], &dataLen); err != nil {
		return nil, InvalidParamsError("invalid data length")
	}
	return s.executor.Rent().MinimumBalance(int(dataLen)), nil
}
