// Copyright 2023 the DealerSync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pgpcrypt decrypts PGP-encrypted vendor exports. Decryption is
// all-or-nothing: the plaintext is fully read and integrity-checked before
// any bytes are returned, so a failure can never leave partial output
// downstream.
package pgpcrypt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Reason classifies a decryption failure.
type Reason string

const (
	// ReasonBadKey indicates the private key could not be read or unlocked.
	ReasonBadKey Reason = "BAD_KEY"

	// ReasonDecrypt indicates the ciphertext could not be decrypted with the
	// configured key.
	ReasonDecrypt Reason = "DECRYPT_FAILED"

	// ReasonIntegrity indicates the plaintext failed its integrity check.
	ReasonIntegrity Reason = "INTEGRITY_FAILED"
)

// Error is a structured decryption failure.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decryption failed (%s): %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds the decryption key material.
type Config struct {
	// PrivateKey is the armored PGP private key the vendor encrypts to.
	PrivateKey string `env:"PGP_PRIVATE_KEY, required"`

	// Passphrase unlocks the private key.
	Passphrase string `env:"PGP_PASSPHRASE"`
}

// PGPConfig satisfies the setup provider pattern for job configs that embed
// this config.
func (c *Config) PGPConfig() *Config {
	return c
}

// Decryptor decrypts vendor export files. It is safe for sequential reuse
// across files within a run.
type Decryptor struct {
	entities openpgp.EntityList
}

// NewDecryptor reads and unlocks the configured private key.
func NewDecryptor(cfg *Config) (*Decryptor, error) {
	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(cfg.PrivateKey))
	if err != nil {
		return nil, &Error{Reason: ReasonBadKey, Err: fmt.Errorf("failed to read key ring: %w", err)}
	}

	passphrase := []byte(cfg.Passphrase)
	for _, entity := range entities {
		if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
				return nil, &Error{Reason: ReasonBadKey, Err: fmt.Errorf("failed to unlock private key: %w", err)}
			}
		}
		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt(passphrase); err != nil {
					return nil, &Error{Reason: ReasonBadKey, Err: fmt.Errorf("failed to unlock subkey: %w", err)}
				}
			}
		}
	}

	return &Decryptor{entities: entities}, nil
}

// Decrypt converts an encrypted export into plaintext. On any failure no
// plaintext is returned.
func (d *Decryptor) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r io.Reader = bytes.NewReader(ciphertext)

	// Exports may arrive armored or binary depending on the vendor's tooling.
	if block, err := armor.Decode(bytes.NewReader(ciphertext)); err == nil {
		r = block.Body
	}

	md, err := openpgp.ReadMessage(r, d.entities, nil, &packet.Config{})
	if err != nil {
		return nil, &Error{Reason: ReasonDecrypt, Err: err}
	}

	// Reading the body to completion drives the integrity (MDC) check; an
	// error here means the plaintext must be discarded.
	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, &Error{Reason: ReasonIntegrity, Err: err}
	}

	return plaintext, nil
}
