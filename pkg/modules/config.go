package modules

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/near/borsh-go"
)

var (
	ErrInvalidBondConfig = errors.New("invalid bond configuration")
	ErrNotAuthority      = errors.New("caller is not the resolution authority")
	ErrAwaitingAuthority = errors.New("dispute awaits the authority's verdict")
	ErrUnknownDispute    = errors.New("dispute not pending resolution")
)

// BondConfig is the borsh-encoded blob the bonded modules expect as request
// configuration: which asset to bond and how much.
type BondConfig struct {
	Asset    [20]uint8
	BondSize uint64
}

// AssetAddress returns the bond asset as an address.
func (c BondConfig) AssetAddress() common.Address {
	return c.Asset
}

// Bond returns the bond size as a ledger amount.
func (c BondConfig) Bond() *uint256.Int {
	return uint256.NewInt(c.BondSize)
}

// EncodeBondConfig serializes a bond configuration for a request record.
func EncodeBondConfig(asset common.Address, bondSize uint64) ([]byte, error) {
	return borsh.Serialize(BondConfig{Asset: asset, BondSize: bondSize})
}

// DecodeBondConfig parses and validates a bond configuration blob. A zero
// bond size is rejected: an unbonded request should not select a bonded
// module.
func DecodeBondConfig(data []byte) (BondConfig, error) {
	cfg := BondConfig{}
	if err := borsh.Deserialize(&cfg, data); err != nil {
		return BondConfig{}, fmt.Errorf("%w: %v", ErrInvalidBondConfig, err)
	}
	if cfg.BondSize == 0 {
		return BondConfig{}, fmt.Errorf("%w: zero bond size", ErrInvalidBondConfig)
	}
	return cfg, nil
}
