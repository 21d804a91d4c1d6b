package state

import "hash/fnv"

// Per-tenant state is partitioned across independently locked shards so
// unrelated guilds never contend on the same mutex.
const shardCount = 32

func shardFor(guildID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(guildID))
	return h.Sum32() % shardCount
}
