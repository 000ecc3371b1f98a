// Package models defines the core domain models for FinanceFlow.
//
// # Ledger entries
//
// A user's history is a list of ledger entries. Each entry is one variant of
// the Entry sum type:
//   - Income / Expense: plain personal cash flow
//   - MoneyGiven / MoneyTaken: friend-directed loans with partial-payment tracking
//   - Repayment: money paid back between two friends ("He Paid Back" / "I Paid Back")
//   - Split: a bill divided among several participants
//
// Every variant carries only the fields it needs, so a loan without a friend or a
// split without participants cannot be built. The flat Record type is the wire
// and storage shape; DecodeRecord and EncodeEntry convert between the two.
//
// # People
//
//   - User: a registered account and its profile settings
//   - Friendship: a (pending or accepted) link between two users
//   - Friend: a friend summary with the backend's authoritative balance
//   - Notification: a pending action (friend request, approval, payment confirmation)
//
// # Design Principles
//
//  1. Avoid circular references: use ID strings instead of pointers for relationships
//  2. Amounts are float64 in currency units; arithmetic that must stay exact is done
//     with decimals in the calculator package
//  3. Entry timestamps are time.Time in UTC; account records use Unix seconds
package models
