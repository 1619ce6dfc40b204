package log

const (
	// HTTP request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Jam session
	FieldRoomCode     = "room_code"
	FieldConnectionID = "connection_id"
	FieldSongRequest  = "song_request_id"
	FieldDJID         = "dj_id"
	FieldActiveUsers  = "active_users"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
