// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package scenario parses JSONC permission scenarios for offline
// auditing. A scenario describes a group's transaction history in
// symbolic form: authors by identity string, parent groups by name
// rather than by content-addressed ID, since IDs are only known after
// the header is built.
package scenario

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/sealed"
)

// Transaction is one entry in a scenario's history.
type Transaction struct {
	// Author is the identity appending the transaction.
	Author string `json:"author"`

	// Session distinguishes sessions of the same author. Defaults to
	// "s1".
	Session string `json:"session,omitempty"`

	// MadeAt is the transaction timestamp in Unix milliseconds.
	MadeAt int64 `json:"madeAt"`

	// Privacy is "trusting" (default) or "private".
	Privacy string `json:"privacy,omitempty"`

	// Changes is the plaintext change array for trusting
	// transactions. Strings of the form "@name" are replaced with the
	// derived ID of the named group before the transaction is built,
	// so scenarios can express inheritance without knowing IDs.
	Changes json.RawMessage `json:"changes,omitempty"`

	// EncryptedChanges carries the base64-encoded ciphertext of a
	// private transaction. Alternatively a private transaction may
	// give plaintext Changes plus SealTo, and Build seals them.
	EncryptedChanges string `json:"encryptedChanges,omitempty"`

	// SealTo lists age recipient public keys. Build encrypts the
	// transaction's Changes to them, so scenarios can carry private
	// transactions without handwritten ciphertext.
	SealTo []string `json:"sealTo,omitempty"`

	// KeyUsed names the symmetric key of a private transaction.
	KeyUsed string `json:"keyUsed,omitempty"`
}

// Group is an auxiliary group a scenario's main group can extend.
type Group struct {
	Name         string        `json:"name"`
	InitialAdmin string        `json:"initialAdmin"`
	Transactions []Transaction `json:"transactions"`
}

// Scenario is a parsed scenario file. The top level describes the
// main group; Groups lists parents built before it, in order, each
// able to reference the ones before it by "@name".
type Scenario struct {
	InitialAdmin string `json:"initialAdmin"`

	// CurrentIdentity is the identity the resolving node operates as.
	// Defaults to InitialAdmin. Affects only the self-revocation
	// exception.
	CurrentIdentity string `json:"currentIdentity,omitempty"`

	Transactions []Transaction `json:"transactions"`
	Groups       []Group       `json:"groups,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals and validates the scenario.
func Parse(data []byte) (*Scenario, error) {
	stripped := jsonc.ToJSON(data)

	var s Scenario
	if err := json.Unmarshal(stripped, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReadFile reads and parses a scenario file from disk.
func ReadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Scenario) validate() error {
	if s.InitialAdmin == "" {
		return fmt.Errorf("scenario: initialAdmin is required")
	}
	if _, err := ref.ParseIdentity(s.InitialAdmin); err != nil {
		return fmt.Errorf("scenario: initialAdmin: %w", err)
	}
	if s.CurrentIdentity != "" {
		if _, err := ref.ParseIdentity(s.CurrentIdentity); err != nil {
			return fmt.Errorf("scenario: currentIdentity: %w", err)
		}
	}
	seen := make(map[string]bool)
	for i, group := range s.Groups {
		if group.Name == "" {
			return fmt.Errorf("scenario: group %d: name is required", i)
		}
		if seen[group.Name] {
			return fmt.Errorf("scenario: duplicate group name %q", group.Name)
		}
		seen[group.Name] = true
		if _, err := ref.ParseIdentity(group.InitialAdmin); err != nil {
			return fmt.Errorf("scenario: group %q: initialAdmin: %w", group.Name, err)
		}
		if err := validateTransactions(group.Transactions); err != nil {
			return fmt.Errorf("scenario: group %q: %w", group.Name, err)
		}
	}
	if err := validateTransactions(s.Transactions); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	return nil
}

func validateTransactions(txs []Transaction) error {
	for i, tx := range txs {
		if _, err := ref.ParseIdentity(tx.Author); err != nil {
			return fmt.Errorf("transaction %d: author: %w", i, err)
		}
		switch tx.Privacy {
		case "", string(covalue.Trusting):
			if len(tx.Changes) == 0 {
				return fmt.Errorf("transaction %d: changes are required", i)
			}
			if len(tx.SealTo) > 0 {
				return fmt.Errorf("transaction %d: sealTo requires private privacy", i)
			}
		case string(covalue.Private):
			switch {
			case tx.EncryptedChanges != "":
			case len(tx.Changes) > 0 && len(tx.SealTo) > 0:
				for _, recipient := range tx.SealTo {
					if err := sealed.ParsePublicKey(recipient); err != nil {
						return fmt.Errorf("transaction %d: sealTo: %w", i, err)
					}
				}
			default:
				return fmt.Errorf("transaction %d: encryptedChanges or changes with sealTo are required", i)
			}
		default:
			return fmt.Errorf("transaction %d: unknown privacy %q", i, tx.Privacy)
		}
	}
	return nil
}

// Build constructs the scenario's groups as in-memory CoValues inside
// a fresh registry and returns the registry and the main group. The
// auxiliary groups are built first so the main group's changes can
// reference them.
func (s *Scenario) Build() (*covalue.Registry, *covalue.CoValue, error) {
	currentRaw := s.CurrentIdentity
	if currentRaw == "" {
		currentRaw = s.InitialAdmin
	}
	current := ref.MustParseIdentity(currentRaw)
	registry := covalue.NewRegistry(current)

	names := make(map[string]ref.CoID)
	for _, group := range s.Groups {
		value, err := buildGroup(group.InitialAdmin, "scenario/"+group.Name, group.Transactions, names)
		if err != nil {
			return nil, nil, fmt.Errorf("scenario: group %q: %w", group.Name, err)
		}
		registry.Add(value)
		names[group.Name] = value.ID()
	}

	main, err := buildGroup(s.InitialAdmin, "scenario/main", s.Transactions, names)
	if err != nil {
		return nil, nil, fmt.Errorf("scenario: %w", err)
	}
	registry.Add(main)
	return registry, main, nil
}

func buildGroup(initialAdmin, uniqueness string, txs []Transaction, names map[string]ref.CoID) (*covalue.CoValue, error) {
	admin := ref.MustParseIdentity(initialAdmin)
	ruleset, err := covalue.NewGroupRuleset(admin)
	if err != nil {
		return nil, err
	}
	value, err := covalue.New(covalue.Header{
		Type:       "comap",
		Ruleset:    ruleset,
		Uniqueness: uniqueness,
	})
	if err != nil {
		return nil, err
	}
	for i, tx := range txs {
		built, err := buildTransaction(tx, names)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		nonce := tx.Session
		if nonce == "" {
			nonce = "s1"
		}
		session, err := ref.NewSessionID(ref.MustParseIdentity(tx.Author), nonce)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if _, err := value.Append(session, built); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return value, nil
}

func buildTransaction(tx Transaction, names map[string]ref.CoID) (covalue.Transaction, error) {
	if tx.Privacy == string(covalue.Private) {
		encoded := tx.EncryptedChanges
		if encoded == "" {
			var err error
			encoded, err = sealed.Seal([]byte(substituteNames(string(tx.Changes), names)), tx.SealTo)
			if err != nil {
				return covalue.Transaction{}, fmt.Errorf("sealing changes: %w", err)
			}
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return covalue.Transaction{}, fmt.Errorf("decoding encryptedChanges: %w", err)
		}
		built := covalue.Transaction{
			Privacy:          covalue.Private,
			MadeAt:           tx.MadeAt,
			EncryptedChanges: ciphertext,
		}
		if tx.KeyUsed != "" {
			key, err := ref.ParseKeyID(tx.KeyUsed)
			if err != nil {
				return covalue.Transaction{}, fmt.Errorf("keyUsed: %w", err)
			}
			built.KeyUsed = key
		}
		return built, nil
	}

	return covalue.Transaction{
		Privacy: covalue.Trusting,
		MadeAt:  tx.MadeAt,
		Changes: json.RawMessage(substituteNames(string(tx.Changes), names)),
	}, nil
}

// substituteNames replaces "@name" references with the derived IDs of
// the named groups.
func substituteNames(changes string, names map[string]ref.CoID) string {
	for name, id := range names {
		changes = strings.ReplaceAll(changes, "@"+name, id.String())
	}
	return changes
}
