// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up and reduced to a flat leaf-list API.

// Package merkle provides the binary Merkle root construction used to
// commit transaction order (txRoot) and per-account storage (storageRoot).
package merkle

import "github.com/chainforge/chainstate/foundation/blockchain/hashutil"

// Root computes the Merkle root over an ordered list of leaves.
//
//   - An empty leaf list returns hashutil.EmptyHash.
//   - A singleton leaf list returns the leaf's own hash.
//   - Internal nodes pair left-to-right; an odd node out at any level is
//     carried up unchanged rather than paired with itself.
//
// Callers are responsible for any leaf-form transformation before calling
// Root: transaction leaves are "index || canonicalTxString", storage
// leaves are "key + \" \" + value".
func Root(leaves []string) string {
	if len(leaves) == 0 {
		return hashutil.EmptyHash
	}

	level := make([]string, len(leaves))
	for i, leaf := range leaves {
		level[i] = hashutil.HexString(leaf)
	}

	for len(level) > 1 {
		level = buildLevel(level)
	}

	return level[0]
}

// buildLevel constructs the parent level for the given child hashes.
func buildLevel(level []string) []string {
	next := make([]string, 0, (len(level)+1)/2)

	for i := 0; i < len(level); i += 2 {
		if i+1 == len(level) {
			next = append(next, level[i])
			continue
		}

		next = append(next, hashutil.HexString(level[i]+level[i+1]))
	}

	return next
}
