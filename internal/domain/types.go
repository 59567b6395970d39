package domain

import (
	"fmt"
	"strings"
)

// ComponentType identifies the kind of building block a node represents
type ComponentType string

const (
	ComponentDatabase        ComponentType = "DATABASE"
	ComponentCache           ComponentType = "CACHE"
	ComponentAPIService      ComponentType = "API_SERVICE"
	ComponentQueue           ComponentType = "QUEUE"
	ComponentStorage         ComponentType = "STORAGE"
	ComponentLoadBalancer    ComponentType = "LOAD_BALANCER"
	ComponentStreamProcessor ComponentType = "STREAM_PROCESSOR"
	ComponentBatchProcessor  ComponentType = "BATCH_PROCESSOR"
	ComponentExternalService ComponentType = "EXTERNAL_SERVICE"
	ComponentClient          ComponentType = "CLIENT"
)

// ComponentTypes lists every component type in palette order
var ComponentTypes = []ComponentType{
	ComponentDatabase,
	ComponentCache,
	ComponentAPIService,
	ComponentQueue,
	ComponentStorage,
	ComponentLoadBalancer,
	ComponentStreamProcessor,
	ComponentBatchProcessor,
	ComponentExternalService,
	ComponentClient,
}

// DefaultSubtypeTypes are the component types that carry a subtype
var DefaultSubtypeTypes = []ComponentType{
	ComponentDatabase,
	ComponentCache,
	ComponentAPIService,
	ComponentQueue,
	ComponentStorage,
	ComponentLoadBalancer,
}

// Valid reports whether t is one of the known component types
func (t ComponentType) Valid() bool {
	for _, known := range ComponentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Words renders the type for display ("API_SERVICE" -> "API SERVICE")
func (t ComponentType) Words() string {
	return Words(string(t))
}

// ParseComponentType parses a component type, accepting any letter case
func ParseComponentType(s string) (ComponentType, error) {
	t := ComponentType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown component type %q", s)
	}
	return t, nil
}

// LinkType identifies the kind of interaction an edge represents
type LinkType string

const (
	LinkAPICall       LinkType = "API_CALL"
	LinkStream        LinkType = "STREAM"
	LinkReplication   LinkType = "REPLICATION"
	LinkETLPipeline   LinkType = "ETL_PIPELINE"
	LinkBatchTransfer LinkType = "BATCH_TRANSFER"
	LinkEventFlow     LinkType = "EVENT_FLOW"
	LinkCacheLookup   LinkType = "CACHE_LOOKUP"
	LinkDatabaseQuery LinkType = "DATABASE_QUERY"
)

// LinkTypes lists every link type
var LinkTypes = []LinkType{
	LinkAPICall,
	LinkStream,
	LinkReplication,
	LinkETLPipeline,
	LinkBatchTransfer,
	LinkEventFlow,
	LinkCacheLookup,
	LinkDatabaseQuery,
}

// Valid reports whether t is one of the known link types
func (t LinkType) Valid() bool {
	for _, known := range LinkTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Words renders the type for display ("DATABASE_QUERY" -> "DATABASE QUERY")
func (t LinkType) Words() string {
	return Words(string(t))
}

// ParseLinkType parses a link type, accepting any letter case
func ParseLinkType(s string) (LinkType, error) {
	t := LinkType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown link type %q", s)
	}
	return t, nil
}

// Words replaces underscores with spaces
func Words(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
