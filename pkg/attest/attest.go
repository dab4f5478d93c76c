// Package attest signs consensus reports with detached OpenPGP signatures
// and verifies them.
package attest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

var (
	ErrNoPrivateKey = errors.New("no private key found")
	ErrBadSignature = errors.New("signature verification failed")
)

// Signer produces armored detached signatures.
type Signer struct {
	entity *openpgp.Entity
}

func NewSigner(e *openpgp.Entity) (*Signer, error) {
	if e == nil || e.PrivateKey == nil {
		return nil, ErrNoPrivateKey
	}
	return &Signer{entity: e}, nil
}

// GenerateKey creates a new Ed25519 signing identity.
func GenerateKey(name, email string) (*openpgp.Entity, error) {
	cfg := &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA}
	e, err := openpgp.NewEntity(name, "report signing", email, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return e, nil
}

// LoadSigner reads an armored or binary private key and unlocks it with
// passphrase when it is encrypted.
func LoadSigner(path, passphrase string) (*Signer, error) {
	entities, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if e.PrivateKey.Encrypted {
			if passphrase == "" {
				return nil, fmt.Errorf("key %s is encrypted and no passphrase was given", e.PrimaryKey.KeyIdString())
			}
			if err := e.DecryptPrivateKeys([]byte(passphrase)); err != nil {
				return nil, fmt.Errorf("failed to unlock key: %w", err)
			}
		}
		return NewSigner(e)
	}
	return nil, fmt.Errorf("%w in %s", ErrNoPrivateKey, path)
}

// KeyID is the signing key's short id.
func (s *Signer) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

// Sign writes an armored detached signature of data to w.
func (s *Signer) Sign(w io.Writer, data io.Reader) error {
	if err := openpgp.ArmoredDetachSign(w, s.entity, data, nil); err != nil {
		return fmt.Errorf("failed to sign: %w", err)
	}
	return nil
}

// SignBytes is Sign for in-memory reports.
func (s *Signer) SignBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Sign(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verifier checks detached signatures against a keyring.
type Verifier struct {
	keyring openpgp.EntityList
}

func NewVerifier(keys ...*openpgp.Entity) *Verifier {
	return &Verifier{keyring: append(openpgp.EntityList(nil), keys...)}
}

// ImportKeyFromFile adds the keys in path to the keyring.
func (v *Verifier) ImportKeyFromFile(path string) error {
	entities, err := readKeyFile(path)
	if err != nil {
		return err
	}
	v.keyring = append(v.keyring, entities...)
	return nil
}

// Verify checks an armored or binary detached signature over data and
// returns the id of the key that made it.
func (v *Verifier) Verify(data, signature []byte) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("%w: keyring is empty", ErrBadSignature)
	}
	var signer *openpgp.Entity
	var err error
	if bytes.Contains(signature, []byte("-----BEGIN PGP SIGNATURE-----")) {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return signer.PrimaryKey.KeyIdString(), nil
}

func readKeyFile(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in %s", path)
	}
	return entities, nil
}

// WriteKeys writes the armored private key to privPath (0600) and the armored
// public key to pubPath.
func WriteKeys(e *openpgp.Entity, privPath, pubPath string) error {
	var priv bytes.Buffer
	w, err := armor.Encode(&priv, openpgp.PrivateKeyType, nil)
	if err != nil {
		return err
	}
	if err := e.SerializePrivate(w, nil); err != nil {
		return fmt.Errorf("failed to serialize private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	var pub bytes.Buffer
	w, err = armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		return err
	}
	if err := e.Serialize(w); err != nil {
		return fmt.Errorf("failed to serialize public key: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	if err := os.WriteFile(privPath, priv.Bytes(), 0600); err != nil {
		return err
	}
	return os.WriteFile(pubPath, pub.Bytes(), 0644)
}
