// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

// DefaultPartition is the storage partition used when no identity is
// present (anonymous sessions share it).
const DefaultPartition = "chatHistory"

// PartitionKey derives the storage partition key for an identity. A
// present identity maps to a deterministic identity-specific key; an
// empty identity maps to DefaultPartition. Pure and total: no side
// effects, no failure modes.
func PartitionKey(id string) string {
	if id == "" {
		return DefaultPartition
	}
	return DefaultPartition + "_" + id
}
