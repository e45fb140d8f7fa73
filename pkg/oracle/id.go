package oracle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/meta-node-blockchain/meta-oracle/pkg/utils"
)

// Sequence hands out monotonically increasing nonces for id derivation. It
// is owned and injected by the node that builds the oracle, never global
// state. Rollback undoes the most recent allocation only; if a reentrant
// transition allocated on top, the failed nonce stays burned and monotonic
// order is preserved.
type Sequence struct {
	next uint64
}

func NewSequence(start uint64) *Sequence {
	return &Sequence{next: start}
}

// Next allocates and returns the next nonce.
func (s *Sequence) Next() uint64 {
	n := s.next
	s.next++
	return n
}

// Current returns the next nonce without allocating it.
func (s *Sequence) Current() uint64 {
	return s.next
}

// Rollback returns nonce n to the sequence if it is still the latest
// allocation. Reports whether the rollback took effect.
func (s *Sequence) Rollback(n uint64) bool {
	if s.next == n+1 {
		s.next = n
		return true
	}
	return false
}

// requestID derives the content-addressed identity of a request from its
// creator, the oracle's own identity and the request nonce.
func requestID(requester common.Address, oracle common.Address, nonce uint64) common.Hash {
	return crypto.Keccak256Hash(requester.Bytes(), oracle.Bytes(), utils.Uint64ToBytes(nonce))
}

// responseID folds in the proposer, the oracle identity, the parent request
// and a global response nonce, so identical payloads still get distinct ids.
func responseID(proposer common.Address, oracle common.Address, reqID common.Hash, nonce uint64) common.Hash {
	return crypto.Keccak256Hash(proposer.Bytes(), oracle.Bytes(), reqID.Bytes(), utils.Uint64ToBytes(nonce))
}

// disputeID derives the dispute identity from the disputer and the disputed
// pair.
func disputeID(disputer common.Address, reqID, rspID common.Hash) common.Hash {
	return crypto.Keccak256Hash(disputer.Bytes(), reqID.Bytes(), rspID.Bytes())
}
