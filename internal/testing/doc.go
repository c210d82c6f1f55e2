// Package testing provides test infrastructure for marketplace
// transaction testing.
//
// The package wires a complete standalone market (engine, in-memory
// bank, in-memory registry, manual clock) behind a small API for
// creating funded accounts, minting tokens, applying transactions, and
// asserting on the outcome.
//
// # Basic usage
//
//	func TestSale(t *testing.T) {
//	    env := NewTestEnv(t)
//
//	    alice := env.FundedAccount("alice", 10_000)
//	    bob := env.FundedAccount("bob", 10_000)
//	    token := env.MintToken(alice)
//
//	    RequireApplied(t, env.Apply(tx.NewList(alice.Address, token, 500, 0)))
//	    RequireApplied(t, env.Apply(tx.NewBuy(bob.Address, token, 500)))
//
//	    RequireOwner(t, env, token, bob)
//	    RequirePending(t, env, alice, 500)
//	}
//
// Accounts are derived deterministically from their names, so a test
// run is reproducible end to end.
package testing
