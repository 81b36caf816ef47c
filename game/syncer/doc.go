// Package syncer reconciles committed game state with the advisory
// broadcast channel.
//
// The store is the only source of truth. After a commit the Publisher maps
// the transaction's domain events to small wire events, stamps them with the
// committed version and hands them to a Broadcaster. Delivery is at most
// once and unordered relative to other commits.
//
// Receivers keep a Replica. An event is folded into the local snapshot only
// when its version is exactly one past the local version; stale events are
// ignored and gaps or roster changes trigger a fetch of the authoritative
// record. Optimistic echoes of the receiver's own actions are kept in a
// pending cache keyed by action id and dropped once a snapshot moves past
// the version they were based on.
//
// Usage:
//
//	pub := syncer.NewPublisher(hub, logger)
//	pub.Publish(game.ID, game.Version, actionID, events)
//
//	replica := syncer.NewReplica(gameID, apiClient)
//	replica.Resync(ctx)
//	outcome, err := replica.Handle(ctx, ev)
package syncer
