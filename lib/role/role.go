// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

// Package role defines the closed role enumeration of the Weft
// permission model and the predicates the permission engine folds over:
// which roles can administer a group, which are inheritable through
// group extension, and the partial order used to merge inherited roles.
//
// Roles come in two kinds. Standing roles (reader, writer, writeOnly,
// admin, superAdmin, revoked) describe what a member may do. Invite
// roles (readerInvite, writerInvite, writeOnlyInvite, adminInvite,
// superAdminInvite) are capability tokens: holding one authorizes
// minting exactly the corresponding standing role for an identity, and
// nothing else.
package role

// Role is one member's role in a group. The zero value ("") means the
// identity has no role at all — distinct from Revoked, which is an
// explicit removal recorded in the group's history.
type Role string

const (
	// Reader can read the group's CoValues.
	Reader Role = "reader"

	// Writer can read and write the group's CoValues.
	Writer Role = "writer"

	// WriteOnly can write to the group's CoValues and read back only
	// its own changes. Each writeOnly member has a per-member write
	// key so its contributions are not decryptable by other writeOnly
	// members.
	WriteOnly Role = "writeOnly"

	// Admin can read, write, and change member roles, short of
	// touching super-admins.
	Admin Role = "admin"

	// SuperAdmin can do anything, including demoting admins and other
	// super-admins.
	SuperAdmin Role = "superAdmin"

	// Revoked marks a member as removed. Revocation is a role
	// assignment like any other so it participates in the same
	// causally-ordered history.
	Revoked Role = "revoked"

	// Invite roles. Each mints exactly one standing role.
	ReaderInvite     Role = "readerInvite"
	WriterInvite     Role = "writerInvite"
	WriteOnlyInvite  Role = "writeOnlyInvite"
	AdminInvite      Role = "adminInvite"
	SuperAdminInvite Role = "superAdminInvite"
)

// IsValid reports whether r is a member of the closed role enumeration.
// Transactions assigning any other value are rejected by the validator.
func (r Role) IsValid() bool {
	switch r {
	case Reader, Writer, WriteOnly, Admin, SuperAdmin, Revoked,
		ReaderInvite, WriterInvite, WriteOnlyInvite, AdminInvite, SuperAdminInvite:
		return true
	}
	return false
}

// IsAccountRole reports whether r is a standing role an account can
// hold and act with: reader, writer, writeOnly, admin, or superAdmin.
func (r Role) IsAccountRole() bool {
	switch r {
	case Reader, Writer, WriteOnly, Admin, SuperAdmin:
		return true
	}
	return false
}

// CanAdmin reports whether r may administer the group: change member
// roles, set the read key, declare parent extensions.
func (r Role) CanAdmin() bool {
	return r == Admin || r == SuperAdmin
}

// IsInvite reports whether r is an invite capability token.
func (r Role) IsInvite() bool {
	switch r {
	case ReaderInvite, WriterInvite, WriteOnlyInvite, AdminInvite, SuperAdminInvite:
		return true
	}
	return false
}

// IsInheritable reports whether r flows from a parent group into a
// child that extends it. Invite roles and revocations never inherit: an
// invite is a capability scoped to the group it was minted in, and a
// parent-side revocation must not clobber a role the child granted
// directly.
func (r Role) IsInheritable() bool {
	return r.IsAccountRole()
}

// Mints returns the one standing role an invite role may assign, and
// false if r is not an invite role. This is the single-use-capability
// shape: a writerInvite holder may set someone to writer and nothing
// else.
func (r Role) Mints() (Role, bool) {
	switch r {
	case ReaderInvite:
		return Reader, true
	case WriterInvite:
		return Writer, true
	case WriteOnlyInvite:
		return WriteOnly, true
	case AdminInvite:
		return Admin, true
	case SuperAdminInvite:
		return SuperAdmin, true
	}
	return "", false
}

// AssignableToEveryone reports whether r may be assigned to the
// "everyone" wildcard. The wildcard can carry default read/write
// access or an explicit revocation, but never administrative power or
// an invite capability.
func (r Role) AssignableToEveryone() bool {
	switch r {
	case Reader, Writer, WriteOnly, Revoked:
		return true
	}
	return false
}

// IsHigher reports whether a outranks b in the ordering used to merge
// inherited roles: superAdmin > admin > writer > reader, with revoked
// and the zero role strictly below everything. WriteOnly and invite
// roles are not comparable by this ordering; IsHigher treats them as
// outranking only revoked/unset, mirroring how the merge adopts any
// inheritable role over an absent one but never reorders peers it
// cannot rank.
func IsHigher(a, b Role) bool {
	if a == "" || a == Revoked {
		return false
	}
	if b == "" || b == Revoked {
		return true
	}
	if b == SuperAdmin {
		return false
	}
	if a == SuperAdmin {
		return true
	}
	if b == Admin {
		return false
	}
	if a == Admin {
		return true
	}
	return a == Writer && b == Reader
}
