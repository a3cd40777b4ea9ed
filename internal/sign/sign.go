package sign

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const SignatureExt = ".asc"

var ErrNoSigningKey = errors.New("no private signing key found")

// Signer produces armored detached OpenPGP signatures.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner reads an armored key ring and picks the first entity holding a
// private key. An encrypted key is unlocked with passphrase.
func NewSigner(r io.Reader, passphrase string) (*Signer, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read key ring: %w", err)
	}

	for _, e := range keyring {
		if e.PrivateKey == nil {
			continue
		}

		if e.PrivateKey.Encrypted {
			if err := e.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, fmt.Errorf("failed to decrypt signing key: %w", err)
			}
		}

		return &Signer{entity: e}, nil
	}

	return nil, ErrNoSigningKey
}

func NewSignerFromFile(path, passphrase string) (*Signer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewSigner(f, passphrase)
}

// KeyID returns the hex id of the signing key.
func (s *Signer) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

func (s *Signer) Sign(message io.Reader) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := openpgp.ArmoredDetachSign(buf, s.entity, message, nil); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
