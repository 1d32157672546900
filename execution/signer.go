package execution

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Signature is the r/s/v triple attached to every /exchange request.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

// Signer signs L1 actions with the account's secp256k1 key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	mainnet bool
}

// NewSigner parses a hex private key, with or without the 0x prefix.
func NewSigner(privateKeyHex string, mainnet bool) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		mainnet: mainnet,
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// ActionHash is keccak256(msgpack(action) || nonce || vault flag), the
// connection id the phantom agent signs over.
func ActionHash(action interface{}, nonce uint64, vault *common.Address) (common.Hash, error) {
	packed, err := packAction(action)
	if err != nil {
		return common.Hash{}, err
	}
	buf := bytes.NewBuffer(packed)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	buf.Write(n[:])

	if vault == nil {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		buf.Write(vault.Bytes())
	}
	return crypto.Keccak256Hash(buf.Bytes()), nil
}

// packAction msgpack-encodes action with the smallest integer encodings,
// matching the venue's reference encoder.
func packAction(action interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(action); err != nil {
		return nil, errors.Wrap(err, "failed to msgpack action")
	}
	return buf.Bytes(), nil
}

// agentTypedData builds the EIP-712 payload for the phantom agent.
func agentTypedData(connectionID common.Hash, mainnet bool) apitypes.TypedData {
	source := "b"
	if mainnet {
		source = "a"
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1337),
			VerifyingContract: "0x0000000000000000000000000000000000000000",
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": connectionID.Bytes(),
		},
	}
}

// L1Digest returns the EIP-712 digest signed for action.
func (s *Signer) L1Digest(action interface{}, nonce uint64, vault *common.Address) ([]byte, error) {
	connectionID, err := ActionHash(action, nonce, vault)
	if err != nil {
		return nil, err
	}
	digest, _, err := apitypes.TypedDataAndHash(agentTypedData(connectionID, s.mainnet))
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash typed data")
	}
	return digest, nil
}

// SignL1Action signs action for submission at nonce.
func (s *Signer) SignL1Action(action interface{}, nonce uint64, vault *common.Address) (Signature, error) {
	digest, err := s.L1Digest(action, nonce, vault)
	if err != nil {
		return Signature{}, err
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return Signature{}, errors.Wrap(err, "failed to sign action")
	}
	return Signature{
		R: hexutil.EncodeBig(new(big.Int).SetBytes(sig[:32])),
		S: hexutil.EncodeBig(new(big.Int).SetBytes(sig[32:64])),
		V: sig[64] + 27,
	}, nil
}
