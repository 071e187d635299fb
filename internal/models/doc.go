// Package models defines the core domain models for the savings-group meeting backend.
//
// # Meetings
//
// A Meeting moves through a small state machine:
//
//	SCHEDULED -> IN_PROGRESS -> COMPLETED
//	SCHEDULED | IN_PROGRESS -> CANCELLED
//
// Financial and social activity can only be recorded while a meeting is IN_PROGRESS.
// A COMPLETED meeting only accepts narrative edits and audited amendments.
//
// # Ledger
//
// Every recorded activity is a LedgerEntry: a common envelope (meeting, member,
// verification status, source) plus exactly one kind-specific detail block.
// Training and voting sessions are header entries; per-member attendance and
// votes are child entries pointing at their header through ParentID.
//
// # Money
//
// All monetary values use decimal.Decimal. Amounts are never float64.
//
// # Relationships
//
// Relationships are expressed as ID strings rather than pointers. The meeting
// owns its attendance, ledger entries, document references, and summaries.
package models
