package events

import "encoding/json"

// CatalogIngest é a mensagem publicada no tópico "catalog_ingest".
// Payload segue o mesmo formato do corpo de POST /api/ingest.
type CatalogIngest struct {
	Source   string          `json:"source"`
	Key      string          `json:"key,omitempty"`
	Mode     string          `json:"mode,omitempty"` // vazio = IngestModeReplace
	Payload  json.RawMessage `json:"payload"`
	TsUnixMs int64           `json:"ts_unix_ms"`
}

// Modos de aplicação do payload
const (
	// IngestModeReplace aplica como POST /api/ingest (flags de mercado normalizadas)
	IngestModeReplace = "replace"
	// IngestModeFeed preserva flags de mercados existentes; usado pelo feed de odds
	IngestModeFeed = "feed"
)
