package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNoIssuedEvent = errors.New("receipt carries no CertificateIssued event")

// RegistryABI is the ABI of the certificate registry contract:
//
//	function issueCertificate(string name, string course, string contentHash, address recipient) returns (bytes32)
//	function verifyCertificate(bytes32 certificateId) view returns (bool)
//	function revokeCertificate(bytes32 certificateId)
//	function getTotalCertificates() view returns (uint256)
//	function owner() view returns (address)
//	event CertificateIssued(bytes32 indexed certificateId, address indexed institution, string contentHash, uint256 timestamp)
const RegistryABI = `[
	{
		"type": "function",
		"name": "issueCertificate",
		"inputs": [
			{"name": "name", "type": "string"},
			{"name": "course", "type": "string"},
			{"name": "contentHash", "type": "string"},
			{"name": "recipient", "type": "address"}
		],
		"outputs": [
			{"name": "certificateId", "type": "bytes32"}
		],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "verifyCertificate",
		"inputs": [
			{"name": "certificateId", "type": "bytes32"}
		],
		"outputs": [
			{"name": "valid", "type": "bool"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "revokeCertificate",
		"inputs": [
			{"name": "certificateId", "type": "bytes32"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "getTotalCertificates",
		"inputs": [],
		"outputs": [
			{"name": "total", "type": "uint256"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "owner",
		"inputs": [],
		"outputs": [
			{"name": "", "type": "address"}
		],
		"stateMutability": "view"
	},
	{
		"type": "event",
		"name": "CertificateIssued",
		"inputs": [
			{"name": "certificateId", "type": "bytes32", "indexed": true},
			{"name": "institution", "type": "address", "indexed": true},
			{"name": "contentHash", "type": "string", "indexed": false},
			{"name": "timestamp", "type": "uint256", "indexed": false}
		]
	}
]`

// CertificateIssuedEvent is the decoded CertificateIssued log.
type CertificateIssuedEvent struct {
	CertificateID [32]byte
	Institution   common.Address
	ContentHash   string
	Timestamp     *big.Int
	Raw           types.Log
}

// Caller is the read side of the chain client.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Submitter is the write side of the chain client.
type Submitter interface {
	Caller
	SubmitAndWait(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

// Registry wraps the deployed certificate registry contract.
type Registry struct {
	address common.Address
	abi     abi.ABI
	backend Submitter
}

func NewRegistry(address common.Address, backend Submitter) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(RegistryABI))
	if err != nil {
		return nil, err
	}
	return &Registry{
		address: address,
		abi:     parsed,
		backend: backend,
	}, nil
}

func (r *Registry) Address() common.Address {
	return r.address
}

// IssueCertificate submits the issue transaction and returns the receipt
// together with the certificate id assigned by the contract.
func (r *Registry) IssueCertificate(ctx context.Context, name, course, contentHash string, recipient common.Address) (*CertificateIssuedEvent, *types.Receipt, error) {
	data, err := r.abi.Pack("issueCertificate", name, course, contentHash, recipient)
	if err != nil {
		return nil, nil, err
	}

	receipt, err := r.backend.SubmitAndWait(ctx, r.address, data)
	if err != nil {
		return nil, receipt, err
	}

	event, err := r.parseIssuedEvent(receipt)
	if err != nil {
		return nil, receipt, err
	}
	return event, receipt, nil
}

// VerifyCertificate is the boolean on-chain validity oracle.
func (r *Registry) VerifyCertificate(ctx context.Context, certificateID string) (bool, error) {
	id := common.HexToHash(certificateID)

	data, err := r.abi.Pack("verifyCertificate", [32]byte(id))
	if err != nil {
		return false, err
	}

	result, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return false, err
	}

	values, err := r.abi.Unpack("verifyCertificate", result)
	if err != nil {
		return false, err
	}
	if len(values) != 1 {
		return false, fmt.Errorf("unexpected verifyCertificate output arity %d", len(values))
	}
	valid, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected verifyCertificate output type %T", values[0])
	}
	return valid, nil
}

// RevokeCertificate submits the revoke transaction.
func (r *Registry) RevokeCertificate(ctx context.Context, certificateID string) (*types.Receipt, error) {
	id := common.HexToHash(certificateID)

	data, err := r.abi.Pack("revokeCertificate", [32]byte(id))
	if err != nil {
		return nil, err
	}
	return r.backend.SubmitAndWait(ctx, r.address, data)
}

// GetTotalCertificates reads the registry size.
func (r *Registry) GetTotalCertificates(ctx context.Context) (*big.Int, error) {
	data, err := r.abi.Pack("getTotalCertificates")
	if err != nil {
		return nil, err
	}

	result, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	values, err := r.abi.Unpack("getTotalCertificates", result)
	if err != nil {
		return nil, err
	}
	total, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getTotalCertificates output type %T", values[0])
	}
	return total, nil
}

// Owner reads the contract owner address.
func (r *Registry) Owner(ctx context.Context) (common.Address, error) {
	data, err := r.abi.Pack("owner")
	if err != nil {
		return common.Address{}, err
	}

	result, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}

	values, err := r.abi.Unpack("owner", result)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected owner output type %T", values[0])
	}
	return owner, nil
}

func (r *Registry) parseIssuedEvent(receipt *types.Receipt) (*CertificateIssuedEvent, error) {
	eventABI := r.abi.Events["CertificateIssued"]

	for _, log := range receipt.Logs {
		if log.Address != r.address || len(log.Topics) < 3 || log.Topics[0] != eventABI.ID {
			continue
		}

		event := &CertificateIssuedEvent{
			CertificateID: [32]byte(log.Topics[1]),
			Institution:   common.BytesToAddress(log.Topics[2].Bytes()),
			Raw:           *log,
		}

		unpacked, err := r.abi.Unpack("CertificateIssued", log.Data)
		if err != nil {
			return nil, err
		}
		if len(unpacked) == 2 {
			if s, ok := unpacked[0].(string); ok {
				event.ContentHash = s
			}
			if ts, ok := unpacked[1].(*big.Int); ok {
				event.Timestamp = ts
			}
		}
		return event, nil
	}
	return nil, ErrNoIssuedEvent
}
