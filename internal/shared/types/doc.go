// Package types provides shared data structures for the orchestrator.
//
// This package defines core types used across all components, ensuring
// type safety and consistent data structures.
//
// Core Types:
//   - ApplicationInfo: Discoverable installed NW.js application
//   - Session: Launched debugging instance with its allocated ports
//   - PageInfo: Inspectable target exposed by a debugging endpoint
//   - Event: Store change notification delivered to observers
//
// State Management:
//   - SessionStatus: Session state enum (preparing, running, closed)
//   - Stats: Store statistics
//
// Example Usage:
//
//	session := &types.Session{
//	    InstanceID: string(id.NewInstanceID()),
//	    AppID:      app.ID,
//	    Status:     types.StatusPreparing,
//	    Pages:      map[string]types.PageInfo{},
//	}
package types
