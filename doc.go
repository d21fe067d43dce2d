// Package merklekv is a client for the MerkleKV server's line protocol:
// CRLF-terminated text commands over TCP, one response per command.
//
// A Client owns exactly one connection and must not be shared across
// goroutines. For concurrent workloads, use the pool subpackage, which hands
// out connected clients from a bounded pool.
//
//	client := merklekv.New("127.0.0.1", 7379)
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close()
//
//	if err := client.Set(ctx, "user:1", "john_doe"); err != nil {
//		return err
//	}
//	item, err := client.Get(ctx, "user:1")
package merklekv
