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

package pgpcrypt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// newTestKey generates a throwaway key pair and returns the armored private
// key plus the entity for encrypting test payloads.
func newTestKey(t *testing.T) (string, *openpgp.Entity) {
	t.Helper()

	entity, err := openpgp.NewEntity("dms-vendor", "test", "vendor@example.com", nil)
	if err != nil {
		t.Fatalf("failed to create entity: %v", err)
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatalf("failed to create armor encoder: %v", err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatalf("failed to serialize private key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close armor encoder: %v", err)
	}

	return buf.String(), entity
}

// encryptTo encrypts plaintext to the given entity.
func encryptTo(t *testing.T, entity *openpgp.Entity, plaintext []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := openpgp.Encrypt(&buf, []*openpgp.Entity{entity}, nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to start encryption: %v", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to finish encryption: %v", err)
	}
	return buf.Bytes()
}

func TestDecryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	armoredKey, entity := newTestKey(t)

	d, err := NewDecryptor(&Config{PrivateKey: armoredKey})
	if err != nil {
		t.Fatalf("NewDecryptor: %v", err)
	}

	want := []byte("dealno,custno,vin\n1,9,V1\n")
	ciphertext := encryptTo(t, entity, want)

	got, err := d.Decrypt(ctx, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDecryptor_GarbageCiphertext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	armoredKey, _ := newTestKey(t)

	d, err := NewDecryptor(&Config{PrivateKey: armoredKey})
	if err != nil {
		t.Fatalf("NewDecryptor: %v", err)
	}

	if _, err := d.Decrypt(ctx, []byte("this is not a pgp message")); err == nil {
		t.Fatal("expected error for garbage ciphertext")
	} else {
		var derr *Error
		if !errors.As(err, &derr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if derr.Reason != ReasonDecrypt {
			t.Errorf("expected reason %q, got %q", ReasonDecrypt, derr.Reason)
		}
	}
}

func TestDecryptor_WrongKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	armoredKey, _ := newTestKey(t)
	_, otherEntity := newTestKey(t)

	d, err := NewDecryptor(&Config{PrivateKey: armoredKey})
	if err != nil {
		t.Fatalf("NewDecryptor: %v", err)
	}

	ciphertext := encryptTo(t, otherEntity, []byte("secret"))
	if _, err := d.Decrypt(ctx, ciphertext); err == nil {
		t.Fatal("expected error decrypting with wrong key")
	}
}

func TestNewDecryptor_BadKey(t *testing.T) {
	t.Parallel()

	if _, err := NewDecryptor(&Config{PrivateKey: "not a key"}); err == nil {
		t.Fatal("expected error for malformed key")
	} else {
		var derr *Error
		if !errors.As(err, &derr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if derr.Reason != ReasonBadKey {
			t.Errorf("expected reason %q, got %q", ReasonBadKey, derr.Reason)
		}
	}
}

func TestDecryptor_Armored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	armoredKey, entity := newTestKey(t)

	d, err := NewDecryptor(&Config{PrivateKey: armoredKey})
	if err != nil {
		t.Fatalf("NewDecryptor: %v", err)
	}

	want := []byte("armored payload")

	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		t.Fatalf("failed to create armor encoder: %v", err)
	}
	ew, err := openpgp.Encrypt(aw, []*openpgp.Entity{entity}, nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to start encryption: %v", err)
	}
	if _, err := io.Copy(ew, strings.NewReader(string(want))); err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	if err := ew.Close(); err != nil {
		t.Fatalf("failed to finish encryption: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("failed to close armor: %v", err)
	}

	got, err := d.Decrypt(ctx, buf.Bytes())
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}
