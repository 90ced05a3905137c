// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package scenario_test

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/permission"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/role"
	"github.com/weft-foundation/weft/lib/scenario"
	"github.com/weft-foundation/weft/lib/sealed"
)

const basicScenario = `{
	// alice bootstraps herself, promotes bob, bob promotes carol
	"initialAdmin": "co_zAlice",
	"transactions": [
		{"author": "co_zAlice", "madeAt": 1, "changes": [
			{"op": "set", "key": "co_zAlice", "value": "admin"},
		]},
		{"author": "co_zAlice", "madeAt": 10, "changes": [
			{"op": "set", "key": "co_zBob", "value": "admin"},
		]},
		{"author": "co_zBob", "madeAt": 20, "changes": [
			{"op": "set", "key": "co_zCarol", "value": "writer"},
		]},
	],
}`

func TestParse(t *testing.T) {
	s, err := scenario.Parse([]byte(basicScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.InitialAdmin != "co_zAlice" {
		t.Errorf("initialAdmin = %q, want co_zAlice", s.InitialAdmin)
	}
	if len(s.Transactions) != 3 {
		t.Fatalf("parsed %d transactions, want 3", len(s.Transactions))
	}
	if s.Transactions[2].MadeAt != 20 {
		t.Errorf("transaction 2 madeAt = %d, want 20", s.Transactions[2].MadeAt)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"notJSON", `[`, "parsing scenario"},
		{"missingAdmin", `{"transactions": []}`, "initialAdmin is required"},
		{"badAdmin", `{"initialAdmin": "alice"}`, "initialAdmin"},
		{"badAuthor", `{"initialAdmin": "co_zA", "transactions": [{"author": "bob", "changes": [{}]}]}`, "author"},
		{"missingChanges", `{"initialAdmin": "co_zA", "transactions": [{"author": "co_zB"}]}`, "changes are required"},
		{"badPrivacy", `{"initialAdmin": "co_zA", "transactions": [{"author": "co_zB", "privacy": "secret"}]}`, "unknown privacy"},
		{"duplicateGroup", `{"initialAdmin": "co_zA", "groups": [
			{"name": "p", "initialAdmin": "co_zA"},
			{"name": "p", "initialAdmin": "co_zA"},
		]}`, "duplicate group name"},
		{"groupMissingName", `{"initialAdmin": "co_zA", "groups": [{"initialAdmin": "co_zA"}]}`, "name is required"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(test.input))
			if err == nil {
				t.Fatalf("Parse succeeded, want error containing %q", test.want)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Fatalf("error %q does not contain %q", err, test.want)
			}
		})
	}
}

func TestBuildAndResolve(t *testing.T) {
	s, err := scenario.Parse([]byte(basicScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	registry, group, err := s.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	members, err := permission.ResolveGroupMembers(registry, group, permission.NewResolution(), permission.Options{})
	if err != nil {
		t.Fatalf("ResolveGroupMembers: %v", err)
	}
	if got := members.RoleOf(ref.MustParseIdentity("co_zBob")); got != role.Admin {
		t.Errorf("bob = %s, want admin", got)
	}
	if got := members.RoleOf(ref.MustParseIdentity("co_zCarol")); got != role.Writer {
		t.Errorf("carol = %s, want writer", got)
	}
}

func TestBuildInheritance(t *testing.T) {
	const input = `{
		"initialAdmin": "co_zAlice",
		"groups": [
			{"name": "team", "initialAdmin": "co_zAlice", "transactions": [
				{"author": "co_zAlice", "madeAt": 1, "changes": [
					{"op": "set", "key": "co_zAlice", "value": "admin"}
				]},
				{"author": "co_zAlice", "madeAt": 5, "changes": [
					{"op": "set", "key": "co_zDave", "value": "writer"}
				]}
			]}
		],
		"transactions": [
			{"author": "co_zAlice", "madeAt": 1, "changes": [
				{"op": "set", "key": "co_zAlice", "value": "admin"}
			]},
			{"author": "co_zAlice", "madeAt": 10, "changes": [
				{"op": "set", "key": "parent_@team", "value": "extend"}
			]}
		]
	}`
	s, err := scenario.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	registry, group, err := s.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	members, err := permission.ResolveGroupMembers(registry, group, permission.NewResolution(), permission.Options{})
	if err != nil {
		t.Fatalf("ResolveGroupMembers: %v", err)
	}
	if got := members.RoleOf(ref.MustParseIdentity("co_zDave")); got != role.Writer {
		t.Errorf("dave = %s, want writer (inherited)", got)
	}
}

func TestBuildSealsPrivateChanges(t *testing.T) {
	recipient, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	input := fmt.Sprintf(`{
		"initialAdmin": "co_zAlice",
		"transactions": [
			{"author": "co_zAlice", "madeAt": 1, "changes": [
				{"op": "set", "key": "co_zAlice", "value": "admin"}
			]},
			{"author": "co_zAlice", "madeAt": 10, "privacy": "private",
				"keyUsed": "key_zK1",
				"sealTo": [%q],
				"changes": [{"op": "set", "key": "secret", "value": 1}]},
		],
	}`, recipient.PublicKey)

	s, err := scenario.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	registry, group, err := s.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res := permission.NewResolution()
	if _, err := permission.ResolveGroupMembers(registry, group, res, permission.Options{}); err != nil {
		t.Fatalf("ResolveGroupMembers: %v", err)
	}

	var private *covalue.Entry
	for _, entry := range group.Entries() {
		if entry.Tx.Privacy == covalue.Private {
			private = &entry
		}
	}
	if private == nil {
		t.Fatal("no private transaction was built")
	}
	// Alice is an admin by then, so her private write stands.
	if !res.Valid(private.ID) {
		t.Errorf("private transaction %s is invalid, want valid", private.ID)
	}

	plaintext, err := sealed.Unseal(base64.StdEncoding.EncodeToString(private.Tx.EncryptedChanges), recipient.PrivateKey)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if !strings.Contains(string(plaintext), `"secret"`) {
		t.Errorf("unsealed changes %q do not contain the original key", plaintext)
	}
}

func TestSealToValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trustingWithSealTo", `{"initialAdmin": "co_zA", "transactions": [
			{"author": "co_zA", "changes": [{}], "sealTo": ["age1x"]},
		]}`, "sealTo requires private"},
		{"privateWithoutPayload", `{"initialAdmin": "co_zA", "transactions": [
			{"author": "co_zA", "privacy": "private"},
		]}`, "encryptedChanges or changes with sealTo"},
		{"badRecipient", `{"initialAdmin": "co_zA", "transactions": [
			{"author": "co_zA", "privacy": "private", "changes": [{}], "sealTo": ["nonsense"]},
		]}`, "sealTo"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(test.input))
			if err == nil {
				t.Fatalf("Parse succeeded, want error containing %q", test.want)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Fatalf("error %q does not contain %q", err, test.want)
			}
		})
	}
}

func TestBuildCurrentIdentityDefault(t *testing.T) {
	s, err := scenario.Parse([]byte(`{"initialAdmin": "co_zAlice", "transactions": []}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	registry, _, err := s.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := registry.CurrentIdentity(); got != ref.MustParseIdentity("co_zAlice") {
		t.Errorf("current identity = %s, want co_zAlice", got)
	}
}
