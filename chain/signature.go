package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when a digest was not authorized by the
// claimed signer.
var ErrInvalidSignature = errors.New("invalid signature")

// SignatureLength is the length of a recoverable secp256k1 signature.
const SignatureLength = 65

// VerifySignature checks that digest was authorized by signer. When signer
// hosts code the check is delegated to its ERC1271 isValidSignature;
// otherwise the signing key is recovered from the signature and compared.
// A failed code probe is returned as-is; every other failure is
// ErrInvalidSignature.
func VerifySignature(ctx context.Context, backend bind.ContractCaller, digest common.Hash, signature []byte, signer common.Address) error {
	cc := NewContractCaller(backend)
	isContract, err := cc.HasCode(ctx, signer)
	if err != nil {
		return fmt.Errorf("failed to probe signer code: %w", err)
	}

	if isContract {
		magic, err := cc.IsValidSignature(ctx, signer, digest, signature)
		if err != nil || magic != ERC1271MagicValue {
			return ErrInvalidSignature
		}
		return nil
	}

	recovered, err := RecoverSigner(digest, signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if recovered == (common.Address{}) || recovered != signer {
		return ErrInvalidSignature
	}
	return nil
}

// RecoverSigner recovers the address that produced a 65-byte [R || S || V]
// signature over digest. V may be 0/1 or 27/28; high-S signatures are
// rejected.
func RecoverSigner(digest common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d, want %d", len(signature), SignatureLength)
	}

	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return common.Address{}, errors.New("signature values out of range")
	}

	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
