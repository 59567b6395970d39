package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// rawToNull stores raw JSON as a nullable string
func rawToNull(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// nullToRaw restores raw JSON from a nullable string
func nullToRaw(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

// Timestamps are stored as unix milliseconds

func timeToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals interface to nullable JSON string
// Returns empty NullString for nil or empty maps
func marshalToNull(v map[string]any) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the components table:
// 1. Add field to componentRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update componentColumns constant - APPEND to end
// 4. Update toDomain() and componentInsertArgs()
// 5. Add migration in sqlite.go migrate() using addColumnIfNotExists()
// 6. Update relevant tests
//
// CRITICAL: Column order must match between:
// - componentColumns constant
// - scanArgs() return slice
// - componentInsertArgs() return slice
//
// Same pattern applies to links and notifications.

// ============================================================================
// Component Row Scanner
// ============================================================================

// componentRow holds all columns from a component query for scanning
type componentRow struct {
	LocalID        string
	RemoteID       string
	Type           string
	Subtype        sql.NullString
	DisplayName    string
	CustomName     sql.NullString
	HeuristicsJSON sql.NullString
	PropertiesJSON sql.NullString
	PositionX      float64
	PositionY      float64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match componentColumns order exactly
func (r *componentRow) scanArgs() []interface{} {
	return []interface{}{
		&r.LocalID,        // 1
		&r.RemoteID,       // 2
		&r.Type,           // 3
		&r.Subtype,        // 4
		&r.DisplayName,    // 5
		&r.CustomName,     // 6
		&r.HeuristicsJSON, // 7
		&r.PropertiesJSON, // 8
		&r.PositionX,      // 9
		&r.PositionY,      // 10
	}
}

// toDomain converts the scanned row to a domain.ComponentNode
func (r *componentRow) toDomain() (*domain.ComponentNode, error) {
	node := domain.NewComponentNode(r.LocalID, r.RemoteID, domain.ComponentType(r.Type), r.DisplayName)
	node.Subtype = nullToString(r.Subtype)
	node.CustomName = nullToString(r.CustomName)
	node.Heuristics = nullToRaw(r.HeuristicsJSON)
	node.Position = domain.Position{X: r.PositionX, Y: r.PositionY}

	if err := unmarshalJSONField(r.PropertiesJSON, &node.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return node, nil
}

// componentColumns returns the SELECT column list for component queries
const componentColumns = `local_id, remote_id, type, subtype, display_name,
	custom_name, heuristics, properties, position_x, position_y`

// componentInsertArgs prepares arguments for a component INSERT, after
// session_id and seq
func componentInsertArgs(node *domain.ComponentNode) ([]interface{}, error) {
	propsJSON, err := marshalToNull(node.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	return []interface{}{
		node.LocalID,
		node.RemoteID,
		string(node.Type),
		stringToNull(node.Subtype),
		node.DisplayName,
		stringToNull(node.CustomName),
		rawToNull(node.Heuristics),
		propsJSON,
		node.Position.X,
		node.Position.Y,
	}, nil
}

// ============================================================================
// Link Row Scanner
// ============================================================================

// linkRow holds all columns from a link query for scanning
type linkRow struct {
	LocalID        string
	RemoteID       string
	SourceID       string
	TargetID       string
	LinkType       string
	Label          string
	HeuristicsJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match linkColumns order exactly
func (r *linkRow) scanArgs() []interface{} {
	return []interface{}{
		&r.LocalID,        // 1
		&r.RemoteID,       // 2
		&r.SourceID,       // 3
		&r.TargetID,       // 4
		&r.LinkType,       // 5
		&r.Label,          // 6
		&r.HeuristicsJSON, // 7
	}
}

// toDomain converts the scanned row to a confirmed domain.LinkEdge
func (r *linkRow) toDomain() *domain.LinkEdge {
	edge := domain.NewConfirmedEdge(r.LocalID, r.RemoteID, r.SourceID, r.TargetID,
		domain.LinkType(r.LinkType), nullToRaw(r.HeuristicsJSON))
	if r.Label != "" {
		edge.Label = r.Label
	}
	return edge
}

// linkColumns returns the SELECT column list for link queries
const linkColumns = `local_id, remote_id, source_id, target_id, link_type, label, heuristics`

// linkInsertArgs prepares arguments for a link INSERT, after session_id and seq
func linkInsertArgs(edge *domain.LinkEdge) []interface{} {
	return []interface{}{
		edge.LocalID,
		edge.RemoteID,
		edge.SourceLocalID,
		edge.TargetLocalID,
		string(edge.LinkType),
		edge.Label,
		rawToNull(edge.Heuristics),
	}
}

// ============================================================================
// Notification Row Scanner
// ============================================================================

// notificationRow holds all columns from a notification query for scanning
type notificationRow struct {
	SessionID sql.NullString
	Level     string
	Op        string
	Message   string
	CreatedAt int64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match notificationColumns order exactly
func (r *notificationRow) scanArgs() []interface{} {
	return []interface{}{
		&r.SessionID, // 1
		&r.Level,     // 2
		&r.Op,        // 3
		&r.Message,   // 4
		&r.CreatedAt, // 5
	}
}

// toDomain converts the scanned row to a notify.Notification
func (r *notificationRow) toDomain() notify.Notification {
	return notify.Notification{
		Level:     notify.Level(r.Level),
		Op:        r.Op,
		Message:   r.Message,
		SessionID: nullToString(r.SessionID),
		Time:      millisToTime(r.CreatedAt),
	}
}

// notificationColumns returns the SELECT column list for notification queries
const notificationColumns = `session_id, level, op, message, created_at`
