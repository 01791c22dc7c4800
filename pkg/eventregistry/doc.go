// Package eventregistry provides the types and interfaces for the
// MeshGate event distribution component.
//
// The registry fans out published mesh state-change events to the subset
// of subscribers whose filter matches, in publish order, while giving
// newly joined subscribers a consistent starting snapshot:
//   - Event: an immutable state-change record with a typed payload
//   - Filter: a conjunction of optional predicates over event attributes
//   - Snapshot: the point-in-time aggregate mesh view pushed to late joiners
//   - Message: the envelope handed to the delivery callback
//   - Registry: the interface the gateway publishes to and subscribes through
//
// The interfaces use Go idioms:
//   - A tagged payload variant (Payload implementations) instead of
//     untyped maps, resolved at delivery time
//   - An injected delivery callback instead of event-emitter inheritance
//   - Explicit error returns for malformed events
//
// Example usage:
//
//	id, err := reg.Subscribe("client-7", "mesh.nodes", eventregistry.Filter{
//		EventTypes: []string{"node:online", "node:offline"},
//	})
//	if err != nil {
//		return err
//	}
//	defer reg.Unsubscribe(id)
//
//	err = reg.Publish(eventregistry.Event{
//		Topic:     "mesh.nodes",
//		Type:      "node:online",
//		Source:    "node-14",
//		Timestamp: time.Now().UTC(),
//		Payload:   eventregistry.NodeStatusPayload{NodeID: "node-14", Online: true},
//	})
package eventregistry
