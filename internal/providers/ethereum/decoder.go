package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/credit-markets/subgraphs/internal/domain"
)

// eventsABI declares every log signature the pipeline understands. Batched
// registry payloads arrive as address arrays; role events follow the
// AccessControl layout; transfers follow ERC20.
const eventsABI = `[
	{"type":"event","name":"FactoryAdded","inputs":[{"name":"factory","type":"address","indexed":false}]},
	{"type":"event","name":"FactoryRemoved","inputs":[{"name":"factory","type":"address","indexed":false}]},
	{"type":"event","name":"TokenAdded","inputs":[{"name":"tokens","type":"address[]","indexed":false},{"name":"priceFeeds","type":"address[]","indexed":false}]},
	{"type":"event","name":"TokenRemoved","inputs":[{"name":"tokens","type":"address[]","indexed":false}]},
	{"type":"event","name":"PoolAdded","inputs":[{"name":"pools","type":"address[]","indexed":false}]},
	{"type":"event","name":"PoolRemoved","inputs":[{"name":"pools","type":"address[]","indexed":false}]},
	{"type":"event","name":"KYCAttested","inputs":[{"name":"account","type":"address","indexed":false},{"name":"kycId","type":"uint256","indexed":false},{"name":"kycLevel","type":"uint8","indexed":false},{"name":"attestationUID","type":"bytes32","indexed":false}]},
	{"type":"event","name":"KYCRevoked","inputs":[{"name":"account","type":"address","indexed":false},{"name":"attestationUID","type":"bytes32","indexed":false}]},
	{"type":"event","name":"RoleGranted","inputs":[{"name":"role","type":"bytes32","indexed":true},{"name":"account","type":"address","indexed":true},{"name":"sender","type":"address","indexed":true}]},
	{"type":"event","name":"RoleRevoked","inputs":[{"name":"role","type":"bytes32","indexed":true},{"name":"account","type":"address","indexed":true},{"name":"sender","type":"address","indexed":true}]},
	{"type":"event","name":"AccountCreated","inputs":[{"name":"account","type":"address","indexed":true},{"name":"owners","type":"address[]","indexed":false}]},
	{"type":"event","name":"OwnersUpdated","inputs":[{"name":"addedOwners","type":"address[]","indexed":false},{"name":"removedOwners","type":"address[]","indexed":false}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"FundsTaken","inputs":[{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Repaid","inputs":[{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Refunded","inputs":[{"name":"investor","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"AnswerUpdated","inputs":[{"name":"current","type":"int256","indexed":true},{"name":"roundId","type":"uint256","indexed":true},{"name":"updatedAt","type":"uint256","indexed":false}]}
]`

// Decoder translates raw logs into normalized events. The same Transfer
// topic means an asset movement on a token contract and a share movement on
// a pool contract, so decoding takes the emitting address's watch kind.
type Decoder struct {
	abi abi.ABI

	factoryAdded   common.Hash
	factoryRemoved common.Hash
	tokenAdded     common.Hash
	tokenRemoved   common.Hash
	poolAdded      common.Hash
	poolRemoved    common.Hash
	kycAttested    common.Hash
	kycRevoked     common.Hash
	roleGranted    common.Hash
	roleRevoked    common.Hash
	accountCreated common.Hash
	ownersUpdated  common.Hash
	transfer       common.Hash
	fundsTaken     common.Hash
	repaid         common.Hash
	refunded       common.Hash
	answerUpdated  common.Hash
}

// NewDecoder parses the event signature set
func NewDecoder() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(eventsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse events abi: %w", err)
	}

	return &Decoder{
		abi:            parsed,
		factoryAdded:   parsed.Events["FactoryAdded"].ID,
		factoryRemoved: parsed.Events["FactoryRemoved"].ID,
		tokenAdded:     parsed.Events["TokenAdded"].ID,
		tokenRemoved:   parsed.Events["TokenRemoved"].ID,
		poolAdded:      parsed.Events["PoolAdded"].ID,
		poolRemoved:    parsed.Events["PoolRemoved"].ID,
		kycAttested:    parsed.Events["KYCAttested"].ID,
		kycRevoked:     parsed.Events["KYCRevoked"].ID,
		roleGranted:    parsed.Events["RoleGranted"].ID,
		roleRevoked:    parsed.Events["RoleRevoked"].ID,
		accountCreated: parsed.Events["AccountCreated"].ID,
		ownersUpdated:  parsed.Events["OwnersUpdated"].ID,
		transfer:       parsed.Events["Transfer"].ID,
		fundsTaken:     parsed.Events["FundsTaken"].ID,
		repaid:         parsed.Events["Repaid"].ID,
		refunded:       parsed.Events["Refunded"].ID,
		answerUpdated:  parsed.Events["AnswerUpdated"].ID,
	}, nil
}

// Decode maps one log to a normalized event. Logs with an unrecognized topic,
// and transfers emitted by an address that is neither a pool nor a token,
// decode to (nil, nil).
func (d *Decoder) Decode(chain domain.Chain, kind domain.WatchKind, log types.Log, blockTime int64) (*domain.Event, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}

	event := &domain.Event{
		Chain:       chain,
		Address:     domain.NormalizeAddress(log.Address.Hex()),
		TxHash:      log.TxHash.Hex(),
		BlockNumber: log.BlockNumber,
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Timestamp:   blockTime,
	}

	topic := log.Topics[0]
	switch topic {
	case d.factoryAdded, d.factoryRemoved:
		name := "FactoryAdded"
		event.Type = domain.EventTypeFactoryAdded
		if topic == d.factoryRemoved {
			name = "FactoryRemoved"
			event.Type = domain.EventTypeFactoryRemoved
		}
		values, err := d.abi.Unpack(name, log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		event.Addresses = []string{addressArg(values[0])}
		return event, nil

	case d.tokenAdded:
		values, err := d.abi.Unpack("TokenAdded", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TokenAdded: %w", err)
		}
		event.Type = domain.EventTypeTokenAdded
		event.Addresses = addressSliceArg(values[0])
		event.PriceFeeds = addressSliceArg(values[1])
		return event, nil

	case d.tokenRemoved:
		values, err := d.abi.Unpack("TokenRemoved", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TokenRemoved: %w", err)
		}
		event.Type = domain.EventTypeTokenRemoved
		event.Addresses = addressSliceArg(values[0])
		return event, nil

	case d.poolAdded, d.poolRemoved:
		name := "PoolAdded"
		event.Type = domain.EventTypePoolAdded
		if topic == d.poolRemoved {
			name = "PoolRemoved"
			event.Type = domain.EventTypePoolRemoved
		}
		values, err := d.abi.Unpack(name, log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		event.Addresses = addressSliceArg(values[0])
		return event, nil

	case d.kycAttested:
		values, err := d.abi.Unpack("KYCAttested", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode KYCAttested: %w", err)
		}
		event.Type = domain.EventTypeKYCAttested
		event.Account = addressArg(values[0])
		event.KYCID = bigArg(values[1]).String()
		event.KYCLevel = uint8Arg(values[2])
		event.AttestationUID = bytes32Arg(values[3])
		return event, nil

	case d.kycRevoked:
		values, err := d.abi.Unpack("KYCRevoked", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode KYCRevoked: %w", err)
		}
		event.Type = domain.EventTypeKYCRevoked
		event.Account = addressArg(values[0])
		event.AttestationUID = bytes32Arg(values[1])
		return event, nil

	case d.roleGranted, d.roleRevoked:
		if len(log.Topics) < 3 {
			return nil, fmt.Errorf("role event with %d topics", len(log.Topics))
		}
		event.Type = domain.EventTypeRoleGranted
		if topic == d.roleRevoked {
			event.Type = domain.EventTypeRoleRevoked
		}
		event.Role = log.Topics[1].Hex()
		event.Account = domain.NormalizeAddress(common.BytesToAddress(log.Topics[2].Bytes()).Hex())
		return event, nil

	case d.accountCreated:
		if len(log.Topics) < 2 {
			return nil, fmt.Errorf("AccountCreated with %d topics", len(log.Topics))
		}
		values, err := d.abi.Unpack("AccountCreated", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode AccountCreated: %w", err)
		}
		event.Type = domain.EventTypeAccountCreated
		event.Account = domain.NormalizeAddress(common.BytesToAddress(log.Topics[1].Bytes()).Hex())
		event.Owners = addressSliceArg(values[0])
		return event, nil

	case d.ownersUpdated:
		values, err := d.abi.Unpack("OwnersUpdated", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode OwnersUpdated: %w", err)
		}
		event.Type = domain.EventTypeOwnersUpdated
		event.AddedOwners = addressSliceArg(values[0])
		event.RemovedOwners = addressSliceArg(values[1])
		return event, nil

	case d.transfer:
		if len(log.Topics) < 3 {
			return nil, fmt.Errorf("Transfer with %d topics", len(log.Topics))
		}
		switch kind {
		case domain.WatchKindPool:
			event.Type = domain.EventTypeShareTransfer
		case domain.WatchKindToken:
			event.Type = domain.EventTypeTransfer
		default:
			return nil, nil
		}
		values, err := d.abi.Unpack("Transfer", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode Transfer: %w", err)
		}
		event.From = domain.NormalizeAddress(common.BytesToAddress(log.Topics[1].Bytes()).Hex())
		event.To = domain.NormalizeAddress(common.BytesToAddress(log.Topics[2].Bytes()).Hex())
		event.Amount = bigArg(values[0]).String()
		return event, nil

	case d.fundsTaken, d.repaid:
		name := "FundsTaken"
		event.Type = domain.EventTypeFundsTaken
		if topic == d.repaid {
			name = "Repaid"
			event.Type = domain.EventTypeRepaid
		}
		values, err := d.abi.Unpack(name, log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		event.Amount = bigArg(values[0]).String()
		return event, nil

	case d.refunded:
		if len(log.Topics) < 2 {
			return nil, fmt.Errorf("Refunded with %d topics", len(log.Topics))
		}
		values, err := d.abi.Unpack("Refunded", log.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode Refunded: %w", err)
		}
		event.Type = domain.EventTypeRefunded
		event.Investor = domain.NormalizeAddress(common.BytesToAddress(log.Topics[1].Bytes()).Hex())
		event.Amount = bigArg(values[0]).String()
		return event, nil

	case d.answerUpdated:
		if len(log.Topics) < 2 {
			return nil, fmt.Errorf("AnswerUpdated with %d topics", len(log.Topics))
		}
		event.Type = domain.EventTypeAnswerUpdated
		// the indexed answer is an int256, so the topic needs a signed read
		answer := log.Topics[1].Big()
		if answer.Bit(255) == 1 {
			answer.Sub(answer, new(big.Int).Lsh(big.NewInt(1), 256))
		}
		event.Amount = answer.String()
		return event, nil

	default:
		return nil, nil
	}
}

// Topics returns every topic hash the decoder recognizes, for log filter
// construction
func (d *Decoder) Topics() []common.Hash {
	return []common.Hash{
		d.factoryAdded, d.factoryRemoved,
		d.tokenAdded, d.tokenRemoved,
		d.poolAdded, d.poolRemoved,
		d.kycAttested, d.kycRevoked,
		d.roleGranted, d.roleRevoked,
		d.accountCreated, d.ownersUpdated,
		d.transfer,
		d.fundsTaken, d.repaid, d.refunded,
		d.answerUpdated,
	}
}

func addressArg(v interface{}) string {
	a, _ := v.(common.Address)
	return domain.NormalizeAddress(a.Hex())
}

func addressSliceArg(v interface{}) []string {
	addrs, _ := v.([]common.Address)
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, domain.NormalizeAddress(a.Hex()))
	}
	return out
}

func bigArg(v interface{}) *big.Int {
	b, _ := v.(*big.Int)
	if b == nil {
		return new(big.Int)
	}
	return b
}

func uint8Arg(v interface{}) uint8 {
	u, _ := v.(uint8)
	return u
}

func bytes32Arg(v interface{}) string {
	b, _ := v.([32]byte)
	return "0x" + common.Bytes2Hex(b[:])
}
