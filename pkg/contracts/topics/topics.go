package topics

const (
	// Catálogo (times, campeonatos, jogos, mercados)
	CatalogIngest = "catalog_ingest"

	// DLQs
	CatalogIngestDLQ = "catalog_ingest_dlq"
)
