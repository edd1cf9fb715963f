// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

// Package auth implements the credential lifecycle and session
// authorization model for Memberlane.
//
// # Domain Types
//
// Domain types (Account, Session) should be created using their
// respective constructors:
//   - NewAccount - creates an Account with a validated username, email,
//     and password hash
//   - NewSession - creates a Session with a validated account and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration, credential verification, password changes
//   - SessionAuthority - session issuance, resolution, and revocation
//
// Services are created with New* constructors that validate dependencies.
package auth
