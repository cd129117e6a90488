// Package errtag defines the core's error taxonomy as sentinel values
// usable with errors.Is, so callers can branch on failure kind without
// string matching. Every one of these is recovered locally by its caller;
// none of them is meant to reach a user directly.
package errtag

import "errors"

var (
	ErrBufferQuery             = errors.New("windowanchor: display buffer query failed")
	ErrConfigQuery             = errors.New("windowanchor: display config query failed")
	ErrRegistryMiss            = errors.New("windowanchor: registry key or value not found")
	ErrCompoundDocMalformed    = errors.New("windowanchor: jump-list compound document malformed")
	ErrLnkMalformed            = errors.New("windowanchor: shell link stream malformed")
	ErrProcessPathInaccessible = errors.New("windowanchor: process image path inaccessible")
	ErrLaunchFailed            = errors.New("windowanchor: application launch failed")
	ErrDirectoryInaccessible   = errors.New("windowanchor: directory inaccessible during search")
	ErrCancelled               = errors.New("windowanchor: operation cancelled")
)
